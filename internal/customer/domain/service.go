package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateCustomerRequest struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	ERPAccounts string
	IsActive    bool
}

type UpdateCustomerRequest struct {
	ID          snowflake.ID
	FirstName   string
	LastName    string
	Email       string
	ERPAccounts string
	IsActive    bool
}

type ListCustomerRequest struct {
	// Search matches name or email, case-insensitive substring.
	Search string
	// ActiveOnly restricts results to enabled accounts.
	ActiveOnly bool
}

type ListCustomerFilter struct {
	Search     string
	ActiveOnly bool
}

// Service manages the portal account lifecycle. Password writes go through
// the service so the must-reset flag stays consistent: admin-set passwords
// force a reset on next login, self-service changes clear it.
type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, req ListCustomerRequest) ([]*Customer, error)

	// Update applies profile fields and returns the per-field changes that
	// were made, keyed by column, for audit trails.
	Update(ctx context.Context, req UpdateCustomerRequest) (*Customer, map[string][2]string, error)
	SetActive(ctx context.Context, id snowflake.ID, active bool) (*Customer, error)

	// VerifyPassword authenticates a login attempt. It rejects disabled
	// accounts and records the login time on success.
	VerifyPassword(ctx context.Context, email, password string) (*Customer, error)
	// AdminSetPassword overwrites the password and forces a reset on next login.
	AdminSetPassword(ctx context.Context, id snowflake.ID, password string) (*Customer, error)
	// ChangePassword verifies the current password, stores the new one and
	// clears the must-reset flag.
	ChangePassword(ctx context.Context, id snowflake.ID, current, next string) error
}
