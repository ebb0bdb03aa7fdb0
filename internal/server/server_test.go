package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	auditrepo "github.com/traversoft/customer-portal/internal/audit/repository"
	auditsvc "github.com/traversoft/customer-portal/internal/audit/service"
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	"github.com/traversoft/customer-portal/internal/auth/directory"
	"github.com/traversoft/customer-portal/internal/auth/password"
	authsvc "github.com/traversoft/customer-portal/internal/auth/service"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	customerrepo "github.com/traversoft/customer-portal/internal/customer/repository"
	customersvc "github.com/traversoft/customer-portal/internal/customer/service"
	"github.com/traversoft/customer-portal/internal/erp"
	"github.com/traversoft/customer-portal/internal/identity"
	"github.com/traversoft/customer-portal/internal/providers/email"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
	sessionrepo "github.com/traversoft/customer-portal/internal/session/repository"
	sessionsvc "github.com/traversoft/customer-portal/internal/session/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	adminUser     = "portal_admin"
	adminPass     = "admin-secret-99"
	customerEmail = "ada@example.com"
	customerPass  = "portal-pass-1"
)

type stubDirectory struct{}

func (stubDirectory) Authenticate(ctx context.Context, username, password string) (*directory.User, error) {
	return nil, directory.ErrNotEnabled
}

type stubInventory struct {
	items []erp.InventoryItem
}

func (s *stubInventory) CustomerInventory(ctx context.Context, names []string, unrestricted bool) ([]erp.InventoryItem, error) {
	if unrestricted {
		return s.items, nil
	}
	var out []erp.InventoryItem
	for _, item := range s.items {
		for _, name := range names {
			if item.CustomerName == name {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (s *stubInventory) CustomerNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.items))
	for _, item := range s.items {
		names = append(names, item.CustomerName)
	}
	return names, nil
}

type serverFixture struct {
	srv       *Server
	db        *gorm.DB
	codec     *cookie.Codec
	customers customerdomain.Service
	sessions  sessiondomain.Service

	// jar holds the portal cookie across requests, like a browser would.
	jar *http.Cookie
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&sessiondomain.SessionRecord{},
		&auditdomain.AuditEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	adminHash, err := password.Hash(adminPass)
	require.NoError(t, err)
	cfg := config.Config{
		ListenAddr:        ":0",
		CookieHashKey:     "0123456789abcdef0123456789abcdef",
		CookieBlockKey:    "fedcba9876543210fedcba9876543210",
		AdminUsername:     adminUser,
		AdminPasswordHash: adminHash,
	}

	customers := customersvc.New(customersvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: customerrepo.Provide(),
	})
	audit := auditsvc.NewService(auditsvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide(),
	})
	policy := config.NewStaticSessionPolicyHolder(config.DefaultSessionPolicy())
	sessions := sessionsvc.New(sessionsvc.Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      sessionrepo.Provide(),
		Customers: customers,
		Audit:     audit,
		Policy:    policy,
	})
	auth := authsvc.New(authsvc.Params{
		Log:       zap.NewNop(),
		Cfg:       cfg,
		Customers: customers,
		Directory: stubDirectory{},
	})
	codec := cookie.New(cfg)

	resolver := identity.NewResolver(identity.Params{
		Log:       zap.NewNop(),
		Codec:     codec,
		Sessions:  sessions,
		Customers: customers,
		Policy:    policy,
	})

	engine := gin.New()
	engine.Use(resolver.Middleware())
	engine.Use(ErrorHandlingMiddleware())

	inventory := &stubInventory{items: []erp.InventoryItem{
		{CustomerName: "Acme Corp", ItemCode: "WID-1", Quantity: 4},
		{CustomerName: "Globex", ItemCode: "SPR-2", Quantity: 9},
	}}

	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Log:         zap.NewNop(),
		GenID:       node,
		Codec:       codec,
		AuthSvc:     auth,
		CustomerSvc: customers,
		SessionSvc:  sessions,
		AuditSvc:    audit,
		Inventory:   inventory,
		Mailer:      &email.NoOpProvider{},
	})

	return &serverFixture{
		srv:       srv,
		db:        db,
		codec:     codec,
		customers: customers,
		sessions:  sessions,
	}
}

// seedCustomer creates an active customer with the forced-reset flag already
// cleared, so ordinary login flows are not diverted to the password page.
func (f *serverFixture) seedCustomer(t *testing.T) *customerdomain.Customer {
	t.Helper()
	c, err := f.customers.Create(context.Background(), customerdomain.CreateCustomerRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       customerEmail,
		Password:    "initial-secret",
		ERPAccounts: "Acme Corp",
		IsActive:    true,
	})
	require.NoError(t, err)
	require.NoError(t, f.customers.ChangePassword(context.Background(), c.ID, "initial-secret", customerPass))
	c, err = f.customers.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	return c
}

// do performs a request carrying the fixture's cookie and captures any
// replacement cookie the handler set.
func (f *serverFixture) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if f.jar != nil {
		req.AddCookie(f.jar)
	}
	rec := httptest.NewRecorder()
	f.srv.engine.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookie.Name {
			f.jar = ck
		}
	}
	return rec
}

func (f *serverFixture) claims(t *testing.T) cookie.Claims {
	t.Helper()
	if f.jar == nil {
		return cookie.Claims{}
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(f.jar)
	return f.codec.Read(req)
}

func (f *serverFixture) login(t *testing.T, email, pass string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, loginPath, url.Values{
		"email":    {email},
		"password": {pass},
	})
}

func (f *serverFixture) loginAdmin(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, adminLoginPath, url.Values{
		"username": {adminUser},
		"password": {adminPass},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestLoginGuard_PreservesNextURL(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	rec := f.do(t, http.MethodGet, "/inventory", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, loginPath, rec.Header().Get("Location"))
	assert.Equal(t, "/inventory", f.claims(t).NextURL)

	rec = f.login(t, customerEmail, customerPass)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/inventory", rec.Header().Get("Location"))
	assert.Empty(t, f.claims(t).NextURL)
}

func TestLogin_RejectsOffsiteNextURL(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	rec := httptest.NewRecorder()
	require.NoError(t, f.codec.Write(rec, cookie.Claims{NextURL: "//evil.example/phish"}))
	f.jar = rec.Result().Cookies()[0]

	got := f.login(t, customerEmail, customerPass)
	require.Equal(t, http.StatusFound, got.Code)
	assert.Equal(t, landingPath, got.Header().Get("Location"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	rec := f.login(t, customerEmail, "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.login(t, "nobody@example.com", customerPass)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_HoneypotDropsSilently(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	rec := f.do(t, http.MethodPost, loginPath, url.Values{
		"email":    {customerEmail},
		"password": {customerPass},
		"website":  {"https://spam.example"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))

	var count int64
	require.NoError(t, f.db.Model(&sessiondomain.SessionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogin_AlreadySignedInRedirects(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)
	f.login(t, customerEmail, customerPass)

	rec := f.do(t, http.MethodGet, loginPath, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, landingPath, rec.Header().Get("Location"))
}

func TestLogin_RecordsAuditEvent(t *testing.T) {
	f := newServerFixture(t)
	c := f.seedCustomer(t)
	f.login(t, customerEmail, customerPass)

	var event auditdomain.AuditEvent
	require.NoError(t, f.db.Where("action = ?", auditdomain.ActionCustomerLogin).First(&event).Error)
	assert.Equal(t, "customer", event.ActorType)
	assert.Equal(t, customerEmail, event.ActorID)
	require.NotNil(t, event.TargetCustomerID)
	assert.Equal(t, c.ID, *event.TargetCustomerID)
}

func TestForcedReset_ConfinesCustomerToPasswordChange(t *testing.T) {
	f := newServerFixture(t)
	_, err := f.customers.Create(context.Background(), customerdomain.CreateCustomerRequest{
		FirstName: "Fresh",
		Email:     "fresh@example.com",
		Password:  "temp-password",
		IsActive:  true,
	})
	require.NoError(t, err)

	rec := f.login(t, "fresh@example.com", "temp-password")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, passwordChangePath, rec.Header().Get("Location"))

	// Following the redirect lands on a real page, not a 404.
	rec = f.do(t, http.MethodGet, passwordChangePath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"must_reset_password":true`)

	for _, path := range []string{landingPath, "/inventory"} {
		rec = f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, passwordChangePath, rec.Header().Get("Location"), path)
	}

	rec = f.do(t, http.MethodPost, passwordChangePath, url.Values{
		"current_password": {"temp-password"},
		"new_password":     {"chosen-by-me-1"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, landingPath, rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, landingPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChangePassword_RequiresCurrent(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)
	f.login(t, customerEmail, customerPass)

	rec := f.do(t, http.MethodPost, passwordChangePath, url.Values{
		"current_password": {"not-my-password"},
		"new_password":     {"whatever-else-1"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGuard_RedirectsByIdentity(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	rec := f.do(t, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, adminLoginPath, rec.Header().Get("Location"))

	f.login(t, customerEmail, customerPass)
	rec = f.do(t, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, landingPath, rec.Header().Get("Location"))
	assert.Equal(t, NoticePermissionDenied, f.claims(t).Notice)

	// The notice renders once on the landing page, then clears.
	rec = f.do(t, http.MethodGet, landingPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), NoticePermissionDenied)
	assert.Empty(t, f.claims(t).Notice)
}

func TestAdminLogin_CookieCarriesAuthMethod(t *testing.T) {
	f := newServerFixture(t)
	f.loginAdmin(t)

	claims := f.claims(t)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "local", claims.AdminAuthMethod)

	// The resolved admin identity exposes the method on later requests.
	rec := f.do(t, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"AuthMethod":"local"`)

	// Logout clears it along with the rest of the admin identity.
	rec = f.do(t, http.MethodPost, "/admin/logout", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, f.claims(t).AdminAuthMethod)
}

func TestAdminLogin_BadCredentials(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, adminLoginPath, url.Values{
		"username": {adminUser},
		"password": {"guess"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminKick_ForcesCustomerLogout(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)

	// Customer signs in on one "browser".
	f.login(t, customerEmail, customerPass)
	token := f.claims(t).SessionToken
	require.NotEmpty(t, token)
	customerJar := f.jar

	// Admin signs in on another and kicks the session.
	admin := &serverFixture{srv: f.srv, db: f.db, codec: f.codec, customers: f.customers, sessions: f.sessions}
	admin.loginAdmin(t)

	rec := admin.do(t, http.MethodGet, "/admin/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), customerEmail)

	rec = admin.do(t, http.MethodDelete, "/admin/api/sessions/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kicked":true`)

	// Kicking again is still a success, just a no-op.
	rec = admin.do(t, http.MethodDelete, "/admin/api/sessions/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kicked":false`)

	// The customer's very next request is treated as anonymous.
	f.jar = customerJar
	rec = f.do(t, http.MethodGet, landingPath, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, loginPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), identity.NoticeSessionEnded)
}

func TestLogout_EndsSession(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)
	f.login(t, customerEmail, customerPass)
	token := f.claims(t).SessionToken
	require.NotEmpty(t, token)

	rec := f.do(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))

	_, err := f.sessions.Get(context.Background(), token)
	assert.ErrorIs(t, err, sessiondomain.ErrSessionNotFound)

	rec = f.do(t, http.MethodGet, landingPath, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestInventory_ScopedToCustomerAccounts(t *testing.T) {
	f := newServerFixture(t)
	f.seedCustomer(t)
	f.login(t, customerEmail, customerPass)

	rec := f.do(t, http.MethodGet, "/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Corp")
	assert.NotContains(t, rec.Body.String(), "Globex")
}

func TestAdminSessionsPolicy_Roundtrip(t *testing.T) {
	f := newServerFixture(t)
	f.loginAdmin(t)

	rec := f.do(t, http.MethodGet, "/admin/api/sessions/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":false`)

	rec = f.do(t, http.MethodPut, "/admin/api/sessions/policy", url.Values{
		"enabled": {"true"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)

	rec = f.do(t, http.MethodGet, "/admin/api/sessions/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)
}
