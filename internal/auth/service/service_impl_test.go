package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/traversoft/customer-portal/internal/auth/directory"
	"github.com/traversoft/customer-portal/internal/auth/domain"
	"github.com/traversoft/customer-portal/internal/auth/password"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	customerrepo "github.com/traversoft/customer-portal/internal/customer/repository"
	customersvc "github.com/traversoft/customer-portal/internal/customer/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Authenticate(ctx context.Context, username, pass string) (*directory.User, error) {
	args := m.Called(ctx, username, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.User), args.Error(1)
}

func newCustomerService(t *testing.T) customerdomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&customerdomain.Customer{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return customersvc.New(customersvc.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepo.Provide(),
	})
}

func newAuthService(t *testing.T, cfg config.Config, dir directory.Directory) (domain.Service, customerdomain.Service) {
	t.Helper()
	customers := newCustomerService(t)
	svc := New(Params{
		Log:       zap.NewNop(),
		Cfg:       cfg,
		Customers: customers,
		Directory: dir,
	})
	return svc, customers
}

func adminConfig(t *testing.T, withDirectory bool) config.Config {
	t.Helper()
	hash, err := password.Hash("letmein-admin")
	require.NoError(t, err)
	cfg := config.Config{
		AdminUsername:     "portaladmin",
		AdminPasswordHash: hash,
	}
	if withDirectory {
		cfg.Directory = config.DirectoryConfig{
			Server:         "dc01.corp.example.com",
			Port:           636,
			Domain:         "corp.example.com",
			BaseDN:         "dc=corp,dc=example,dc=com",
			ServiceAccount: "svc-portal",
			ServicePass:    "svc-secret",
			AdminGroup:     "Portal Admins",
		}
	}
	return cfg
}

func TestAuthenticateAdmin_LocalShortCircuitsDirectory(t *testing.T) {
	dir := &mockDirectory{}
	svc, _ := newAuthService(t, adminConfig(t, true), dir)

	identity, err := svc.AuthenticateAdmin(context.Background(), "portaladmin", "letmein-admin")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)
	assert.Equal(t, domain.AuthMethodLocal, identity.AuthMethod)

	// Local success must not touch the directory at all.
	dir.AssertNumberOfCalls(t, "Authenticate", 0)
}

func TestAuthenticateAdmin_DirectoryFallback(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Authenticate", mock.Anything, "jane", "jane-secret").Return(&directory.User{
		Username:    "jane",
		DisplayName: "Jane Doe",
		Groups:      []string{"CN=Portal Admins,OU=Groups,DC=corp,DC=example,DC=com"},
	}, nil)
	svc, _ := newAuthService(t, adminConfig(t, true), dir)

	// Domain-qualified spellings collapse to the bare account name.
	identity, err := svc.AuthenticateAdmin(context.Background(), "jane@corp.example.com", "jane-secret")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodDirectory, identity.AuthMethod)
	assert.Equal(t, "Jane Doe", identity.DisplayName)
	dir.AssertExpectations(t)
}

func TestAuthenticateAdmin_DirectoryUserOutsideAdminGroup(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Authenticate", mock.Anything, "joe", "joe-secret").Return(&directory.User{
		Username: "joe",
		Groups:   []string{"CN=Staff,OU=Groups,DC=corp,DC=example,DC=com"},
	}, nil)
	svc, _ := newAuthService(t, adminConfig(t, true), dir)

	_, err := svc.AuthenticateAdmin(context.Background(), "joe", "joe-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateAdmin_NoDirectoryConfigured(t *testing.T) {
	dir := &mockDirectory{}
	svc, _ := newAuthService(t, adminConfig(t, false), dir)

	_, err := svc.AuthenticateAdmin(context.Background(), "jane", "jane-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	dir.AssertNumberOfCalls(t, "Authenticate", 0)
}

func TestAuthenticateAdmin_DirectoryErrorStaysGeneric(t *testing.T) {
	dir := &mockDirectory{}
	dir.On("Authenticate", mock.Anything, "jane", "jane-secret").
		Return(nil, directory.ErrBindFailed)
	svc, _ := newAuthService(t, adminConfig(t, true), dir)

	_, err := svc.AuthenticateAdmin(context.Background(), "jane", "jane-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateCustomer(t *testing.T) {
	svc, customers := newAuthService(t, adminConfig(t, false), &mockDirectory{})
	ctx := context.Background()

	created, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{
		FirstName: "Ada",
		Email:     "ada@example.com",
		Password:  "initial-secret",
		IsActive:  true,
	})
	require.NoError(t, err)

	got, err := svc.AuthenticateCustomer(ctx, "ADA@example.com", "initial-secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.AuthenticateCustomer(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = customers.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	_, err = svc.AuthenticateCustomer(ctx, "ada@example.com", "initial-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
