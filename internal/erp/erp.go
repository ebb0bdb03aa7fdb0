// Package erp exposes the read-only views the portal needs from the ERP
// database. The portal never writes to the ERP.
package erp

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("erp not configured")

// InventoryItem is one stock line scoped to an ERP customer account.
type InventoryItem struct {
	CustomerName  string     `json:"customer_name"`
	ItemCode      string     `json:"item_code"`
	Description   string     `json:"description"`
	Quantity      float64    `json:"quantity"`
	UnitOfMeasure string     `json:"unit_of_measure"`
	Location      string     `json:"location"`
	ReceivedAt    *time.Time `json:"received_at,omitempty"`
}

// Inventory answers the portal's two ERP questions: what stock a customer
// may see, and which account names exist for the admin form.
type Inventory interface {
	// CustomerInventory returns stock for the given account names. When
	// unrestricted is true the account filter is skipped entirely.
	CustomerInventory(ctx context.Context, accountNames []string, unrestricted bool) ([]InventoryItem, error)
	// CustomerNames lists every distinct ERP account name.
	CustomerNames(ctx context.Context) ([]string, error)
}
