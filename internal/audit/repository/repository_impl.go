package repository

import (
	"context"
	"strings"

	"github.com/traversoft/customer-portal/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditEvent, error) {
	var events []*domain.AuditEvent
	stmt := db.WithContext(ctx).Model(&domain.AuditEvent{})

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if actorID := strings.TrimSpace(filter.ActorID); actorID != "" {
		stmt = stmt.Where("actor_id = ?", actorID)
	}
	if filter.TargetCustomerID != nil {
		stmt = stmt.Where("target_customer_id = ?", *filter.TargetCustomerID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) DistinctActions(ctx context.Context, db *gorm.DB) ([]string, error) {
	var actions []string
	err := db.WithContext(ctx).
		Model(&domain.AuditEvent{}).
		Distinct("action").
		Order("action asc").
		Pluck("action", &actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *repo) DistinctActors(ctx context.Context, db *gorm.DB) ([]string, error) {
	var actors []string
	err := db.WithContext(ctx).
		Model(&domain.AuditEvent{}).
		Distinct("actor_id").
		Order("actor_id asc").
		Pluck("actor_id", &actors).Error
	if err != nil {
		return nil, err
	}
	return actors, nil
}
