package domain

import "errors"

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidName        = errors.New("first name is required")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
)
