package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository is the session store. Upsert must be atomic: concurrent writes
// for one token may interleave freely but can never produce two rows.
type Repository interface {
	// Upsert inserts the record or, when the token exists, refreshes
	// last_seen/ip/user_agent in a single round trip. created_at is only
	// written on insert.
	Upsert(ctx context.Context, db *gorm.DB, record *SessionRecord) error
	Get(ctx context.Context, db *gorm.DB, token string) (*SessionRecord, error)
	// Delete removes the row; ErrSessionNotFound when it is already gone.
	Delete(ctx context.Context, db *gorm.DB, token string) error
	// ListActive joins sessions with their owners, most recently seen first.
	ListActive(ctx context.Context, db *gorm.DB, limit, offset int) ([]ActiveSession, int64, error)
	// PruneOlderThan deletes every row whose last_seen is before cutoff and
	// returns exactly the evicted rows. Select and delete run in one
	// transaction so the returned set matches what was removed.
	PruneOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]PrunedSession, error)
}
