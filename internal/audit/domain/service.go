package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/traversoft/customer-portal/pkg/db/pagination"
)

type ListAuditRequest struct {
	pagination.Pagination
	Action           string
	ActorID          string
	TargetCustomerID *snowflake.ID
	StartAt          *time.Time
	EndAt            *time.Time
}

type ListAuditResponse struct {
	pagination.PageInfo
	Events []AuditEvent `json:"events"`
	// Distinct filter values for the admin UI's dropdowns.
	Actions []string `json:"actions"`
	Actors  []string `json:"actors"`
}

// Entry is what callers supply when recording an event; actor and client
// info are resolved from the request context.
type Entry struct {
	Action           string
	TargetCustomerID *snowflake.ID
	TargetEmail      string
	Details          map[string]any
}

// Service writes and reads the audit trail. Record is fire and forget:
// audit failures are logged and never block the action being audited.
type Service interface {
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListAuditRequest) (ListAuditResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid page token")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidAction    = errors.New("invalid action")
)
