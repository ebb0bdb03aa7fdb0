package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action values recorded by the portal.
const (
	ActionCustomerLogin       = "customer_login"
	ActionCustomerLogout      = "customer_logout"
	ActionAdminLogin          = "admin_login"
	ActionAdminLogout         = "admin_logout"
	ActionCustomerCreated     = "customer_created"
	ActionCustomerUpdated     = "customer_updated"
	ActionCustomerDeactivated = "customer_deactivated"
	ActionCustomerReactivated = "customer_reactivated"
	ActionPasswordChanged     = "password_changed"
	ActionPasswordReset       = "password_reset"
	ActionSessionKicked       = "session_kicked"
	ActionSessionPruned       = "session_pruned"
	ActionAutoKickChanged     = "auto_kick_policy_changed"
)

// AuditEvent is an append-only record of a portal action. Rows are never
// updated or deleted.
type AuditEvent struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType        string            `gorm:"not null;index" json:"actor_type"`
	ActorID          string            `gorm:"not null;index" json:"actor_id"`
	Action           string            `gorm:"not null;index" json:"action"`
	TargetCustomerID *snowflake.ID     `gorm:"index" json:"target_customer_id,omitempty"`
	TargetEmail      string            `json:"target_email,omitempty"`
	Details          datatypes.JSONMap `json:"details,omitempty"`
	IPAddress        string            `json:"ip_address,omitempty"`
	UserAgent        string            `json:"user_agent,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "audit_events" }

// AuditCursor positions a List query after a previously returned row.
type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
