// Package domain contains core types for portal customer accounts.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AllAccountsSentinel grants a customer visibility into every ERP account.
const AllAccountsSentinel = "All"

// accountDelimiter separates ERP account names in the stored selector.
const accountDelimiter = "|"

// Customer represents a portal user account. Accounts are never hard-deleted;
// IsActive gates login instead.
type Customer struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	FirstName    string       `gorm:"not null" json:"first_name"`
	LastName     string       `gorm:"not null" json:"last_name"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	// ERPAccounts scopes which ERP-side customer data this account may view:
	// the "All" sentinel or a "|"-delimited list of account names.
	ERPAccounts       string     `gorm:"column:erp_accounts;not null" json:"erp_accounts"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	MustResetPassword bool       `gorm:"not null;default:false" json:"must_reset_password"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

func (c *Customer) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// AccountNames returns the ERP account names this customer may query.
// unrestricted is true when the selector is the "All" sentinel.
func (c *Customer) AccountNames() (names []string, unrestricted bool) {
	selector := strings.TrimSpace(c.ERPAccounts)
	if strings.EqualFold(selector, AllAccountsSentinel) {
		return nil, true
	}
	for _, part := range strings.Split(selector, accountDelimiter) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names, false
}

// JoinAccountNames builds the stored selector from a form selection. A
// selection containing the sentinel collapses to the sentinel.
func JoinAccountNames(selected []string) string {
	cleaned := make([]string, 0, len(selected))
	for _, name := range selected {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.EqualFold(name, AllAccountsSentinel) {
			return AllAccountsSentinel
		}
		cleaned = append(cleaned, name)
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, accountDelimiter)
}
