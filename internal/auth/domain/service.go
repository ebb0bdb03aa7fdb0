package domain

import (
	"context"
	"errors"

	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
)

// ErrInvalidCredentials is the only rejection callers ever see. Whether the
// account is unknown, disabled or the password wrong is logged, not returned,
// so login responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates portal visitors. It verifies credentials only;
// session creation stays with the login handler.
type Service interface {
	AuthenticateCustomer(ctx context.Context, email, password string) (*customerdomain.Customer, error)
	AuthenticateAdmin(ctx context.Context, username, password string) (*AdminIdentity, error)
}
