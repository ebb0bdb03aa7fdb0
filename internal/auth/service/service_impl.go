package service

import (
	"context"
	"errors"
	"strings"

	"github.com/traversoft/customer-portal/internal/auth/directory"
	"github.com/traversoft/customer-portal/internal/auth/domain"
	"github.com/traversoft/customer-portal/internal/auth/password"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	"github.com/traversoft/customer-portal/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Customers customerdomain.Service
	Directory directory.Directory
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	cfg       config.Config
	customers customerdomain.Service
	directory directory.Directory
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("auth.service"),
		cfg:       p.Cfg,
		customers: p.Customers,
		directory: p.Directory,
		metrics:   p.Metrics,
	}
}

func (s *Service) AuthenticateCustomer(ctx context.Context, email, pass string) (*customerdomain.Customer, error) {
	customer, err := s.customers.VerifyPassword(ctx, email, pass)
	if err != nil {
		if errors.Is(err, customerdomain.ErrInvalidCredentials) ||
			errors.Is(err, customerdomain.ErrAccountDisabled) {
			s.log.Info("customer login rejected",
				zap.String("email", customerdomain.NormalizeEmail(email)),
				zap.String("reason", err.Error()),
			)
			s.metrics.RecordLogin("customer", "rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	s.log.Info("customer login accepted", zap.String("customer_id", customer.ID.String()))
	s.metrics.RecordLogin("customer", "accepted")
	return customer, nil
}

// AuthenticateAdmin runs an ordered verifier chain. The local static
// credential is always tried first and short-circuits the directory lookup,
// so the portal stays administrable when the directory is down.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, pass string) (*domain.AdminIdentity, error) {
	username = strings.TrimSpace(username)
	log := s.log.With(zap.String("username", username))

	if s.verifyLocalAdmin(username, pass) {
		log.Info("admin login accepted", zap.String("stage", "local"))
		s.metrics.RecordLogin("admin", "accepted")
		return &domain.AdminIdentity{
			Username:    username,
			DisplayName: username,
			IsAdmin:     true,
			AuthMethod:  domain.AuthMethodLocal,
		}, nil
	}
	log.Debug("admin login: local verifier rejected")

	if !s.cfg.Directory.Configured() {
		log.Info("admin login rejected", zap.String("stage", "local"))
		s.metrics.RecordLogin("admin", "rejected")
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.verifyDirectoryAdmin(ctx, username, pass)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) ||
			errors.Is(err, directory.ErrBindFailed) ||
			errors.Is(err, domain.ErrInvalidCredentials) {
			log.Info("admin login rejected",
				zap.String("stage", "directory"),
				zap.String("reason", err.Error()),
			)
			s.metrics.RecordLogin("admin", "rejected")
			return nil, domain.ErrInvalidCredentials
		}
		log.Error("admin login: directory unavailable", zap.Error(err))
		s.metrics.RecordLogin("admin", "error")
		return nil, domain.ErrInvalidCredentials
	}

	log.Info("admin login accepted", zap.String("stage", "directory"))
	s.metrics.RecordLogin("admin", "accepted")
	return identity, nil
}

func (s *Service) verifyLocalAdmin(username, pass string) bool {
	if !strings.EqualFold(username, s.cfg.AdminUsername) {
		return false
	}
	return password.Verify(pass, s.cfg.AdminPasswordHash)
}

func (s *Service) verifyDirectoryAdmin(ctx context.Context, username, pass string) (*domain.AdminIdentity, error) {
	// Accept user@domain and DOMAIN\user spellings, the directory wants
	// the bare account name.
	bare := username
	if i := strings.IndexByte(bare, '@'); i >= 0 {
		bare = bare[:i]
	}
	if i := strings.LastIndexByte(bare, '\\'); i >= 0 {
		bare = bare[i+1:]
	}

	user, err := s.directory.Authenticate(ctx, bare, pass)
	if err != nil {
		return nil, err
	}
	if !user.MemberOf(s.cfg.Directory.AdminGroup) {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.AdminIdentity{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		IsAdmin:     true,
		AuthMethod:  domain.AuthMethodDirectory,
	}, nil
}
