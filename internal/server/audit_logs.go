package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/pkg/db/pagination"
)

func (s *Server) listAuditLogs(c *gin.Context) {
	req := auditdomain.ListAuditRequest{
		Pagination: pagination.Pagination{
			PageToken: c.Query("page_token"),
		},
		Action:  c.Query("action"),
		ActorID: c.Query("actor"),
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil {
		req.PageSize = size
	}

	if raw := c.Query("customer_id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.TargetCustomerID = &id
	}
	if raw := c.Query("start_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.StartAt = &t
	}
	if raw := c.Query("end_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.EndAt = &t
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
