// Package directory verifies admin credentials against an external
// directory server.
package directory

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUserNotFound = errors.New("directory user not found")
	ErrBindFailed   = errors.New("directory bind failed")
	ErrNotEnabled   = errors.New("directory not configured")
)

// User is a directory account that successfully authenticated.
type User struct {
	Username    string
	DisplayName string
	// Groups holds the raw distinguished names of the user's group
	// memberships.
	Groups []string
}

// MemberOf reports whether the user belongs to a group with the given
// common name, matched case-insensitively against each membership DN.
func (u *User) MemberOf(groupCN string) bool {
	want := strings.ToLower("cn=" + groupCN)
	for _, dn := range u.Groups {
		for _, part := range strings.Split(dn, ",") {
			if strings.ToLower(strings.TrimSpace(part)) == want {
				return true
			}
		}
	}
	return false
}

// Directory authenticates a username/password pair and returns the account's
// profile and group memberships.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
}
