package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	auditrepo "github.com/traversoft/customer-portal/internal/audit/repository"
	auditsvc "github.com/traversoft/customer-portal/internal/audit/service"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	customerrepo "github.com/traversoft/customer-portal/internal/customer/repository"
	customersvc "github.com/traversoft/customer-portal/internal/customer/service"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"github.com/traversoft/customer-portal/internal/session/domain"
	"github.com/traversoft/customer-portal/internal/session/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	sessions  domain.Service
	repo      domain.Repository
	customers customerdomain.Service
	audit     auditdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&domain.SessionRecord{},
		&auditdomain.AuditEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	customers := customersvc.New(customersvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: customerrepo.Provide(),
	})
	audit := auditsvc.NewService(auditsvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide(),
	})
	repo := repository.Provide()
	sessions := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repo,
		Customers: customers,
		Audit:     audit,
		Policy:    config.NewStaticSessionPolicyHolder(config.DefaultSessionPolicy()),
	})

	return &fixture{db: db, sessions: sessions, repo: repo, customers: customers, audit: audit}
}

func (f *fixture) seedCustomer(t *testing.T, email string) *customerdomain.Customer {
	t.Helper()
	c, err := f.customers.Create(context.Background(), customerdomain.CreateCustomerRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "initial-secret",
		IsActive:  true,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) sessionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.SessionRecord{}).Count(&n).Error)
	return n
}

func TestUpsert_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedCustomer(t, "ada@example.com")

	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	record := domain.SessionRecord{
		Token:      "tok-upsert",
		CustomerID: c.ID,
		CreatedAt:  created,
		LastSeenAt: created,
		IPAddress:  "192.0.2.1",
		UserAgent:  "First/1.0",
	}
	require.NoError(t, f.repo.Upsert(ctx, f.db, &record))

	later := created.Add(30 * time.Minute)
	update := domain.SessionRecord{
		Token:      "tok-upsert",
		CustomerID: c.ID,
		CreatedAt:  later,
		LastSeenAt: later,
		IPAddress:  "198.51.100.7",
		UserAgent:  "Second/2.0",
	}
	require.NoError(t, f.repo.Upsert(ctx, f.db, &update))

	assert.EqualValues(t, 1, f.sessionCount(t))

	got, err := f.repo.Get(ctx, f.db, "tok-upsert")
	require.NoError(t, err)
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix(), "created_at must survive the update")
	assert.Equal(t, later.Unix(), got.LastSeenAt.Unix())
	assert.Equal(t, "198.51.100.7", got.IPAddress)
	assert.Equal(t, "Second/2.0", got.UserAgent)
}

func TestEstablishAndHeartbeat(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t, "ada@example.com")

	ctx := requestctx.WithIPAddress(context.Background(), "203.0.113.5")
	ctx = requestctx.WithUserAgent(ctx, "Browser/1.0")

	token, err := f.sessions.Establish(ctx, c.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 43, "token must carry at least 256 bits")

	before, err := f.sessions.Get(ctx, token)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	f.sessions.Heartbeat(ctx, token, c.ID)

	after, err := f.sessions.Get(ctx, token)
	require.NoError(t, err)
	assert.True(t, after.LastSeenAt.After(before.LastSeenAt))
	assert.EqualValues(t, 1, f.sessionCount(t))
}

func TestPruneInactive_EvictsExactlyTheStaleSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedCustomer(t, "ada@example.com")

	now := time.Now().UTC()
	stale := []string{"tok-stale-1", "tok-stale-2"}
	for _, token := range stale {
		old := now.Add(-10 * time.Hour)
		require.NoError(t, f.repo.Upsert(ctx, f.db, &domain.SessionRecord{
			Token: token, CustomerID: c.ID, CreatedAt: old, LastSeenAt: old,
		}))
	}
	require.NoError(t, f.repo.Upsert(ctx, f.db, &domain.SessionRecord{
		Token: "tok-fresh", CustomerID: c.ID, CreatedAt: now, LastSeenAt: now,
	}))

	pruned := f.sessions.PruneInactive(ctx, 8*time.Hour)
	require.Len(t, pruned, 2)

	var tokens []string
	for _, p := range pruned {
		tokens = append(tokens, p.Token)
		assert.Equal(t, "ada@example.com", p.CustomerEmail)
	}
	assert.ElementsMatch(t, stale, tokens)

	_, err := f.sessions.Get(ctx, "tok-fresh")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, f.sessionCount(t))

	// Each eviction lands in the audit trail attributed to the system actor.
	logs, err := f.audit.List(ctx, auditdomain.ListAuditRequest{Action: auditdomain.ActionSessionPruned})
	require.NoError(t, err)
	assert.Len(t, logs.Events, 2)
	assert.Equal(t, "system", logs.Events[0].ActorType)
}

func TestKick_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedCustomer(t, "ada@example.com")

	token, err := f.sessions.Establish(ctx, c.ID)
	require.NoError(t, err)

	found, err := f.sessions.Kick(ctx, token)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = f.sessions.Kick(ctx, token)
	require.NoError(t, err)
	assert.False(t, found, "second kick reports not-found, not an error")

	logs, err := f.audit.List(ctx, auditdomain.ListAuditRequest{Action: auditdomain.ActionSessionKicked})
	require.NoError(t, err)
	require.Len(t, logs.Events, 1)
	assert.Equal(t, "ada@example.com", logs.Events[0].TargetEmail)
}

func TestListActive_JoinsAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedCustomer(t, "ada@example.com")
	b := f.seedCustomer(t, "grace@example.com")

	now := time.Now().UTC()
	require.NoError(t, f.repo.Upsert(ctx, f.db, &domain.SessionRecord{
		Token: "tok-older", CustomerID: a.ID, CreatedAt: now.Add(-time.Hour), LastSeenAt: now.Add(-time.Hour),
	}))
	require.NoError(t, f.repo.Upsert(ctx, f.db, &domain.SessionRecord{
		Token: "tok-newer", CustomerID: b.ID, CreatedAt: now, LastSeenAt: now,
	}))

	resp, err := f.sessions.ListActive(ctx, domain.ListActiveRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Sessions, 2)
	assert.EqualValues(t, 2, resp.Total)
	assert.Equal(t, "tok-newer", resp.Sessions[0].Token)
	assert.Equal(t, "grace@example.com", resp.Sessions[0].CustomerEmail)
	assert.Equal(t, "Ada Lovelace", resp.Sessions[1].CustomerName)

	paged, err := f.sessions.ListActive(ctx, domain.ListActiveRequest{Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, paged.Sessions, 1)
	assert.Equal(t, "tok-older", paged.Sessions[0].Token)
}

func TestSetAutoKickPolicy_RunsImmediatePass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedCustomer(t, "ada@example.com")

	old := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, f.repo.Upsert(ctx, f.db, &domain.SessionRecord{
		Token: "tok-ancient", CustomerID: c.ID, CreatedAt: old, LastSeenAt: old,
	}))

	assert.False(t, f.sessions.AutoKickEnabled())

	pruned := f.sessions.SetAutoKickPolicy(ctx, true)
	assert.True(t, f.sessions.AutoKickEnabled())
	require.Len(t, pruned, 1)
	assert.Equal(t, "tok-ancient", pruned[0].Token)

	logs, err := f.audit.List(ctx, auditdomain.ListAuditRequest{Action: auditdomain.ActionAutoKickChanged})
	require.NoError(t, err)
	assert.Len(t, logs.Events, 1)

	f.sessions.SetAutoKickPolicy(ctx, false)
	assert.False(t, f.sessions.AutoKickEnabled())
}
