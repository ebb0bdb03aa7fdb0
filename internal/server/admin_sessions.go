package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
)

func (s *Server) listSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "25"))

	resp, err := s.sessionSvc.ListActive(c.Request.Context(), sessiondomain.ListActiveRequest{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) kickSession(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	found, err := s.sessionSvc.Kick(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	// Kicking an already-gone session is a success from the admin's seat.
	c.JSON(http.StatusOK, gin.H{"kicked": found})
}

func (s *Server) getAutoKickPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.sessionSvc.AutoKickEnabled()})
}

type autoKickRequest struct {
	Enabled bool `form:"enabled" json:"enabled"`
}

func (s *Server) setAutoKickPolicy(c *gin.Context) {
	var req autoKickRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pruned := s.sessionSvc.SetAutoKickPolicy(c.Request.Context(), req.Enabled)
	c.JSON(http.StatusOK, gin.H{
		"enabled":      req.Enabled,
		"pruned_count": len(pruned),
	})
}
