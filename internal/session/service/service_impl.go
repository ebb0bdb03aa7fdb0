package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	"github.com/traversoft/customer-portal/internal/observability/metrics"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"github.com/traversoft/customer-portal/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Customers customerdomain.Service
	Audit     auditdomain.Service
	Policy    *config.SessionPolicyHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	customers customerdomain.Service
	audit     auditdomain.Service
	policy    *config.SessionPolicyHolder
	metrics   *metrics.Metrics

	mu       sync.Mutex
	autoKick bool
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("session.service"),
		repo:      p.Repo,
		customers: p.Customers,
		audit:     p.Audit,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

// NewToken mints an opaque 256-bit session token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) Establish(ctx context.Context, customerID snowflake.ID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	record := domain.SessionRecord{
		Token:      token,
		CustomerID: customerID,
		CreatedAt:  now,
		LastSeenAt: now,
		IPAddress:  requestctx.IPAddress(ctx),
		UserAgent:  domain.TruncateUserAgent(requestctx.UserAgent(ctx)),
	}
	if err := s.repo.Upsert(ctx, s.db, &record); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) Heartbeat(ctx context.Context, token string, customerID snowflake.ID) {
	now := time.Now().UTC()
	record := domain.SessionRecord{
		Token:      token,
		CustomerID: customerID,
		CreatedAt:  now,
		LastSeenAt: now,
		IPAddress:  requestctx.IPAddress(ctx),
		UserAgent:  domain.TruncateUserAgent(requestctx.UserAgent(ctx)),
	}
	if err := s.repo.Upsert(ctx, s.db, &record); err != nil {
		s.log.Warn("session heartbeat failed", zap.Error(err))
		return
	}
	s.metrics.RecordRenewal()
}

func (s *Service) Get(ctx context.Context, token string) (*domain.SessionRecord, error) {
	return s.repo.Get(ctx, s.db, token)
}

func (s *Service) Logout(ctx context.Context, token string) {
	err := s.repo.Delete(ctx, s.db, token)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.log.Warn("logout delete failed", zap.Error(err))
	}
}

func (s *Service) ListActive(ctx context.Context, req domain.ListActiveRequest) (domain.ListActiveResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 250 {
		pageSize = 250
	}

	sessions, total, err := s.repo.ListActive(ctx, s.db, pageSize, (page-1)*pageSize)
	if err != nil {
		return domain.ListActiveResponse{}, err
	}
	return domain.ListActiveResponse{
		Sessions: sessions,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *Service) Kick(ctx context.Context, token string) (bool, error) {
	record, err := s.repo.Get(ctx, s.db, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	var email string
	if customer, err := s.customers.GetByID(ctx, record.CustomerID); err == nil {
		email = customer.Email
	}

	if err := s.repo.Delete(ctx, s.db, token); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			// Lost the race to another kick; the outcome is the same.
			return false, nil
		}
		return false, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:           auditdomain.ActionSessionKicked,
		TargetCustomerID: &record.CustomerID,
		TargetEmail:      email,
		Details:          map[string]any{"last_seen_at": record.LastSeenAt.Format(time.RFC3339)},
	})
	s.metrics.RecordKick()
	s.log.Info("session kicked",
		zap.String("customer_id", record.CustomerID.String()),
		zap.String("customer_email", email),
	)
	return true, nil
}

func (s *Service) PruneInactive(ctx context.Context, maxAge time.Duration) []domain.PrunedSession {
	cutoff := time.Now().UTC().Add(-maxAge)
	pruned, err := s.repo.PruneOlderThan(ctx, s.db, cutoff)
	if err != nil {
		s.log.Warn("session prune failed", zap.Error(err))
		return nil
	}
	if len(pruned) == 0 {
		return nil
	}

	for _, p := range pruned {
		customerID := p.CustomerID
		s.audit.Record(ctx, auditdomain.Entry{
			Action:           auditdomain.ActionSessionPruned,
			TargetCustomerID: &customerID,
			TargetEmail:      p.CustomerEmail,
			Details: map[string]any{
				"last_seen_at": p.LastSeenAt.Format(time.RFC3339),
				"max_age":      maxAge.String(),
			},
		})
	}
	s.metrics.RecordPruned(len(pruned))
	s.log.Info("sessions pruned",
		zap.Int("count", len(pruned)),
		zap.Duration("max_age", maxAge),
	)
	return pruned
}

func (s *Service) RunMaintenance(ctx context.Context) {
	policy := s.policy.Get()
	age := policy.MaxAge()
	if s.AutoKickEnabled() && policy.AutoKickAge() < age {
		age = policy.AutoKickAge()
	}
	s.PruneInactive(ctx, age)
}

func (s *Service) SetAutoKickPolicy(ctx context.Context, enabled bool) []domain.PrunedSession {
	s.mu.Lock()
	changed := s.autoKick != enabled
	s.autoKick = enabled
	s.mu.Unlock()

	if changed {
		s.audit.Record(ctx, auditdomain.Entry{
			Action:  auditdomain.ActionAutoKickChanged,
			Details: map[string]any{"enabled": enabled},
		})
		s.log.Info("auto-kick policy changed", zap.Bool("enabled", enabled))
	}

	if enabled {
		return s.PruneInactive(ctx, s.policy.Get().AutoKickAge())
	}
	return nil
}

func (s *Service) AutoKickEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoKick
}
