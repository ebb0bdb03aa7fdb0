package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Action           string
	ActorID          string
	TargetCustomerID *snowflake.ID
	StartAt          *time.Time
	EndAt            *time.Time
	Cursor           *AuditCursor
	Limit            int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *AuditEvent) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditEvent, error)
	DistinctActions(ctx context.Context, db *gorm.DB) ([]string, error)
	DistinctActors(ctx context.Context, db *gorm.DB) ([]string, error)
}
