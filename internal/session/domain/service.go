package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ListActiveRequest struct {
	// Page is 1-based; PageSize defaults to 25.
	Page     int
	PageSize int
}

type ListActiveResponse struct {
	Sessions []ActiveSession `json:"sessions"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// Service owns the session lifecycle and maintenance duties. Store errors on
// the hot path (heartbeats, pruning) are absorbed and logged; a database
// hiccup must never turn into a user-facing failure.
type Service interface {
	// Establish mints a fresh token for a just-authenticated customer and
	// writes its row. Client info is taken from the request context.
	Establish(ctx context.Context, customerID snowflake.ID) (string, error)
	// Heartbeat advances last_seen for a live session. Best effort.
	Heartbeat(ctx context.Context, token string, customerID snowflake.ID)
	Get(ctx context.Context, token string) (*SessionRecord, error)
	// Logout removes the bearer's own session row. Missing rows are fine.
	Logout(ctx context.Context, token string)

	ListActive(ctx context.Context, req ListActiveRequest) (ListActiveResponse, error)
	// Kick revokes one session and audit-logs the eviction. Kicking a token
	// that is already gone reports found=false, not an error.
	Kick(ctx context.Context, token string) (found bool, err error)

	// PruneInactive evicts sessions idle longer than maxAge and audit-logs
	// each eviction as the current actor. Errors are swallowed.
	PruneInactive(ctx context.Context, maxAge time.Duration) []PrunedSession
	// RunMaintenance applies the configured prune policy once. Called
	// probabilistically from the identity resolver.
	RunMaintenance(ctx context.Context)

	// SetAutoKickPolicy toggles the process-wide aggressive-prune flag.
	// Enabling runs one immediate pass. The flag resets on restart.
	SetAutoKickPolicy(ctx context.Context, enabled bool) []PrunedSession
	AutoKickEnabled() bool
}
