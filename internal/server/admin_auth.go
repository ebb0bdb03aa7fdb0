package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/identity"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"go.uber.org/zap"
)

func (s *Server) registerAdminRoutes() {
	r := s.engine

	r.GET(adminLoginPath, s.showAdminLogin)
	r.POST(adminLoginPath, s.submitAdminLogin)
	r.POST("/admin/logout", s.adminLogout)
	r.GET("/admin", s.RequireAdmin(), s.adminHome)

	api := r.Group("/admin/api", s.RequireAdmin())
	api.GET("/customers", s.listCustomers)
	api.POST("/customers", s.createCustomer)
	api.GET("/customers/:id", s.getCustomer)
	api.PUT("/customers/:id", s.updateCustomer)
	api.POST("/customers/:id/deactivate", s.deactivateCustomer)
	api.POST("/customers/:id/reactivate", s.reactivateCustomer)
	api.POST("/customers/:id/reset-password", s.resetCustomerPassword)
	api.GET("/erp/customers", s.erpCustomerNames)
	api.GET("/sessions", s.listSessions)
	api.DELETE("/sessions/:token", s.kickSession)
	api.GET("/sessions/policy", s.getAutoKickPolicy)
	api.PUT("/sessions/policy", s.setAutoKickPolicy)
	api.GET("/audit-logs", s.listAuditLogs)
}

type adminLoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (s *Server) showAdminLogin(c *gin.Context) {
	if admin := identity.Admin(c); admin != nil && admin.IsAdmin {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": s.popNotice(c)})
}

func (s *Server) submitAdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	admin, err := s.authSvc.AuthenticateAdmin(ctx, req.Username, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	claims := identity.Claims(c)
	claims.IsAdmin = true
	claims.AdminUsername = admin.Username
	claims.AdminName = admin.DisplayName
	claims.AdminAuthMethod = string(admin.AuthMethod)
	claims.Notice = ""
	if err := s.codec.Write(c.Writer, claims); err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	actorCtx := requestctx.WithActor(ctx, requestctx.Actor{Type: "admin", ID: admin.Username})
	s.auditSvc.Record(actorCtx, auditdomain.Entry{
		Action:  auditdomain.ActionAdminLogin,
		Details: map[string]any{"auth_method": string(admin.AuthMethod)},
	})

	c.Redirect(http.StatusFound, "/admin")
}

func (s *Server) adminLogout(c *gin.Context) {
	claims := identity.Claims(c)

	if claims.IsAdmin {
		actorCtx := requestctx.WithActor(c.Request.Context(), requestctx.Actor{
			Type: "admin",
			ID:   claims.AdminUsername,
		})
		s.auditSvc.Record(actorCtx, auditdomain.Entry{Action: auditdomain.ActionAdminLogout})
	}

	claims.IsAdmin = false
	claims.AdminUsername = ""
	claims.AdminName = ""
	claims.AdminAuthMethod = ""
	if err := s.codec.Write(c.Writer, claims); err != nil {
		s.log.Warn("cookie write failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, adminLoginPath)
}

func (s *Server) adminHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"admin":  identity.Admin(c),
		"notice": s.popNotice(c),
	})
}
