package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/traversoft/customer-portal/internal/auth/password"
	"github.com/traversoft/customer-portal/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, domain.ErrInvalidName
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:           s.genID.Generate(),
		FirstName:    firstName,
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: hash,
		ERPAccounts:  strings.TrimSpace(req.ERPAccounts),
		IsActive:     req.IsActive,
		// Admin-issued passwords are provisional until the customer
		// picks their own.
		MustResetPassword: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return nil, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("email", customer.Email),
	)
	return &customer, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return s.repo.FindByEmail(ctx, s.db, email)
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) ([]*domain.Customer, error) {
	return s.repo.List(ctx, s.db, domain.ListCustomerFilter{
		Search:     strings.TrimSpace(req.Search),
		ActiveOnly: req.ActiveOnly,
	})
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (*domain.Customer, map[string][2]string, error) {
	current, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, nil, err
	}

	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	changes := map[string][2]string{}
	fields := map[string]any{}
	apply := func(column, old, next string) {
		if old == next {
			return
		}
		changes[column] = [2]string{old, next}
		fields[column] = next
	}

	apply("first_name", current.FirstName, strings.TrimSpace(req.FirstName))
	apply("last_name", current.LastName, strings.TrimSpace(req.LastName))
	apply("email", current.Email, email)
	apply("erp_accounts", current.ERPAccounts, strings.TrimSpace(req.ERPAccounts))
	if current.IsActive != req.IsActive {
		changes["is_active"] = [2]string{boolString(current.IsActive), boolString(req.IsActive)}
		fields["is_active"] = req.IsActive
	}

	if len(fields) == 0 {
		return current, changes, nil
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.repo.UpdateFields(ctx, s.db, req.ID, fields); err != nil {
		return nil, nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, changes, nil
}

func (s *Service) SetActive(ctx context.Context, id snowflake.ID, active bool) (*domain.Customer, error) {
	err := s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) VerifyPassword(ctx context.Context, email, pass string) (*domain.Customer, error) {
	customer, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			// Burn a hash comparison so unknown addresses take as long
			// as wrong passwords.
			password.Verify(pass, dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(pass, customer.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !customer.IsActive {
		return nil, domain.ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateFields(ctx, s.db, customer.ID, map[string]any{"last_login_at": now}); err != nil {
		s.log.Warn("record last login", zap.Error(err), zap.String("customer_id", customer.ID.String()))
	} else {
		customer.LastLoginAt = &now
	}
	return customer, nil
}

func (s *Service) AdminSetPassword(ctx context.Context, id snowflake.ID, pass string) (*domain.Customer, error) {
	if err := domain.ValidatePassword(pass); err != nil {
		return nil, err
	}
	hash, err := password.Hash(pass)
	if err != nil {
		return nil, err
	}
	err = s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"password_hash":       hash,
		"must_reset_password": true,
		"updated_at":          time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) ChangePassword(ctx context.Context, id snowflake.ID, current, next string) error {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !password.Verify(current, customer.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := password.Hash(next)
	if err != nil {
		return err
	}
	err = s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"password_hash":       hash,
		"must_reset_password": false,
		"updated_at":          time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	s.log.Info("password changed", zap.String("customer_id", customer.ID.String()))
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// dummyHash is compared against when the email is unknown.
var dummyHash = func() string {
	h, err := password.Hash("timing-equalizer")
	if err != nil {
		return ""
	}
	return h
}()
