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
	"github.com/traversoft/customer-portal/internal/audit/repository"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditEvent{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestRecord_CapturesActorAndClientInfo(t *testing.T) {
	svc := newTestService(t)

	ctx := requestctx.WithActor(context.Background(), requestctx.Actor{Type: "admin", ID: "portaladmin"})
	ctx = requestctx.WithIPAddress(ctx, "203.0.113.9")
	ctx = requestctx.WithUserAgent(ctx, "UnitTest/1.0")
	ctx = requestctx.WithRequestID(ctx, "req-123")

	svc.Record(ctx, auditdomain.Entry{
		Action:      auditdomain.ActionSessionKicked,
		TargetEmail: "ada@example.com",
		Details:     map[string]any{"token_prefix": "abcd"},
	})

	resp, err := svc.List(context.Background(), auditdomain.ListAuditRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)

	event := resp.Events[0]
	assert.Equal(t, "admin", event.ActorType)
	assert.Equal(t, "portaladmin", event.ActorID)
	assert.Equal(t, auditdomain.ActionSessionKicked, event.Action)
	assert.Equal(t, "ada@example.com", event.TargetEmail)
	assert.Equal(t, "203.0.113.9", event.IPAddress)
	assert.Equal(t, "UnitTest/1.0", event.UserAgent)
	assert.Equal(t, "req-123", event.Details["request_id"])
	assert.Equal(t, "abcd", event.Details["token_prefix"])
}

func TestRecord_DefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)

	svc.Record(context.Background(), auditdomain.Entry{Action: auditdomain.ActionSessionPruned})

	resp, err := svc.List(context.Background(), auditdomain.ListAuditRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "system", resp.Events[0].ActorType)
	assert.Equal(t, "SYSTEM", resp.Events[0].ActorID)
}

func TestList_FiltersAndDistincts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin := requestctx.WithActor(ctx, requestctx.Actor{Type: "admin", ID: "portaladmin"})
	svc.Record(admin, auditdomain.Entry{Action: auditdomain.ActionCustomerCreated, TargetEmail: "a@example.com"})
	svc.Record(admin, auditdomain.Entry{Action: auditdomain.ActionSessionKicked, TargetEmail: "a@example.com"})
	svc.Record(ctx, auditdomain.Entry{Action: auditdomain.ActionSessionPruned, TargetEmail: "b@example.com"})

	byAction, err := svc.List(ctx, auditdomain.ListAuditRequest{Action: auditdomain.ActionSessionKicked})
	require.NoError(t, err)
	require.Len(t, byAction.Events, 1)
	assert.Equal(t, "a@example.com", byAction.Events[0].TargetEmail)

	byActor, err := svc.List(ctx, auditdomain.ListAuditRequest{ActorID: "SYSTEM"})
	require.NoError(t, err)
	require.Len(t, byActor.Events, 1)
	assert.Equal(t, auditdomain.ActionSessionPruned, byActor.Events[0].Action)

	all, err := svc.List(ctx, auditdomain.ListAuditRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		auditdomain.ActionCustomerCreated,
		auditdomain.ActionSessionKicked,
		auditdomain.ActionSessionPruned,
	}, all.Actions)
	assert.ElementsMatch(t, []string{"portaladmin", "SYSTEM"}, all.Actors)
}

func TestList_RejectsInvertedTimeRange(t *testing.T) {
	svc := newTestService(t)

	end := time.Now().UTC()
	start := end.Add(time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestList_InvalidPageToken(t *testing.T) {
	svc := newTestService(t)

	req := auditdomain.ListAuditRequest{}
	req.PageToken = "not a token"
	_, err := svc.List(context.Background(), req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
