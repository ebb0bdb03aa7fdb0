package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/traversoft/customer-portal/internal/session/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.SessionRecord) error {
	// ON CONFLICT keeps the write a single round trip, so two concurrent
	// requests bearing the same token cannot race into duplicate rows.
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seen_at": record.LastSeenAt,
			"ip_address":   record.IPAddress,
			"user_agent":   record.UserAgent,
		}),
	}).Create(record).Error
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, token string) (*domain.SessionRecord, error) {
	var record domain.SessionRecord
	err := db.WithContext(ctx).First(&record, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, token string) error {
	res := db.WithContext(ctx).Where("token = ?", token).Delete(&domain.SessionRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

type activeSessionRow struct {
	Token         string
	CustomerID    int64
	FirstName     string
	LastName      string
	CustomerEmail string
	CreatedAt     time.Time
	LastSeenAt    time.Time
	IPAddress     string
	UserAgent     string
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, limit, offset int) ([]domain.ActiveSession, int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Table("sessions").
		Joins("JOIN customers ON customers.id = sessions.customer_id").
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	stmt := db.WithContext(ctx).
		Table("sessions").
		Joins("JOIN customers ON customers.id = sessions.customer_id").
		Select(
		`sessions.token, sessions.customer_id,
		 customers.first_name, customers.last_name, customers.email AS customer_email,
		 sessions.created_at, sessions.last_seen_at, sessions.ip_address, sessions.user_agent`,
	).Order("sessions.last_seen_at DESC, sessions.token ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if offset > 0 {
		stmt = stmt.Offset(offset)
	}

	var rows []activeSessionRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	sessions := make([]domain.ActiveSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, domain.ActiveSession{
			Token:         row.Token,
			CustomerID:    snowflake.ID(row.CustomerID),
			CustomerName:  strings.TrimSpace(row.FirstName + " " + row.LastName),
			CustomerEmail: row.CustomerEmail,
			CreatedAt:     row.CreatedAt,
			LastSeenAt:    row.LastSeenAt,
			IPAddress:     row.IPAddress,
			UserAgent:     row.UserAgent,
		})
	}
	return sessions, total, nil
}

func (r *repo) PruneOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.PrunedSession, error) {
	var pruned []domain.PrunedSession

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type prunedRow struct {
			Token         string
			CustomerID    int64
			CustomerEmail string
			LastSeenAt    time.Time
		}
		var rows []prunedRow

		// LEFT JOIN so orphaned rows still get evicted.
		err := tx.Table("sessions").
			Select(`sessions.token, sessions.customer_id,
				customers.email AS customer_email, sessions.last_seen_at`).
			Joins("LEFT JOIN customers ON customers.id = sessions.customer_id").
			Where("sessions.last_seen_at < ?", cutoff).
			Scan(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		tokens := make([]string, 0, len(rows))
		for _, row := range rows {
			tokens = append(tokens, row.Token)
			pruned = append(pruned, domain.PrunedSession{
				Token:         row.Token,
				CustomerID:    snowflake.ID(row.CustomerID),
				CustomerEmail: row.CustomerEmail,
				LastSeenAt:    row.LastSeenAt,
			})
		}
		return tx.Where("token IN ?", tokens).Delete(&domain.SessionRecord{}).Error
	})
	if err != nil {
		return nil, err
	}
	return pruned, nil
}
