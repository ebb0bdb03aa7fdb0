package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"github.com/traversoft/customer-portal/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		s.log.Warn("audit entry dropped: empty action")
		return
	}

	actor := requestctx.ActorFrom(ctx)

	details := map[string]any{}
	for key, value := range entry.Details {
		if key == "" {
			continue
		}
		details[key] = value
	}
	if requestID := requestctx.RequestID(ctx); requestID != "" {
		details["request_id"] = requestID
	}

	event := auditdomain.AuditEvent{
		ID:               s.genID.Generate(),
		ActorType:        actor.Type,
		ActorID:          actor.ID,
		Action:           action,
		TargetCustomerID: entry.TargetCustomerID,
		TargetEmail:      entry.TargetEmail,
		Details:          datatypes.JSONMap(details),
		IPAddress:        requestctx.IPAddress(ctx),
		UserAgent:        requestctx.UserAgent(ctx),
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		s.log.Warn("failed to write audit event",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditRequest) (auditdomain.ListAuditResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:           req.Action,
		ActorID:          req.ActorID,
		TargetCustomerID: req.TargetCustomerID,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		Cursor:           cursor,
		Limit:            pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.AuditEvent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	events := make([]auditdomain.AuditEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}

	actions, err := s.repo.DistinctActions(ctx, s.db)
	if err != nil {
		return auditdomain.ListAuditResponse{}, err
	}
	actors, err := s.repo.DistinctActors(ctx, s.db)
	if err != nil {
		return auditdomain.ListAuditResponse{}, err
	}

	resp := auditdomain.ListAuditResponse{
		Events:  events,
		Actions: actions,
		Actors:  actors,
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
