package domain

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// MinPasswordLength is the minimum accepted password size.
const MinPasswordLength = 8

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive regardless of database collation.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
