package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	"github.com/traversoft/customer-portal/internal/identity"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"go.uber.org/zap"
)

func (s *Server) registerCustomerRoutes() {
	r := s.engine

	r.GET(loginPath, s.showLogin)
	r.POST(loginPath, s.submitLogin)
	r.GET("/logout", s.logout)
	r.POST("/logout", s.logout)

	r.GET(landingPath, s.RequireCustomer(), s.landing)
	r.GET(passwordChangePath, s.RequireCustomer(), s.showPasswordChange)
	r.POST(passwordChangePath, s.RequireCustomer(), s.changePassword)
	r.GET("/inventory", s.RequireCustomer(), s.customerInventory)
}

type loginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	// Website is a honeypot. Humans never see it; bots fill it in.
	Website string `form:"website" json:"website"`
}

func (s *Server) showLogin(c *gin.Context) {
	if identity.Customer(c) != nil {
		c.Redirect(http.StatusFound, landingPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": s.popNotice(c)})
}

func (s *Server) submitLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if strings.TrimSpace(req.Website) != "" {
		s.log.Info("login honeypot tripped", zap.String("ip", requestctx.IPAddress(c.Request.Context())))
		c.Redirect(http.StatusFound, loginPath)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.authSvc.AuthenticateCustomer(ctx, req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.sessionSvc.Establish(ctx, customer.ID)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	claims := identity.Claims(c)
	claims.Customer = &cookie.CustomerSnapshot{
		ID:          customer.ID,
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		Email:       customer.Email,
		ERPAccounts: customer.ERPAccounts,
	}
	claims.SessionToken = token
	claims.Notice = ""
	next := safeNextURL(claims.NextURL)
	claims.NextURL = ""
	if err := s.codec.Write(c.Writer, claims); err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	actorCtx := requestctx.WithActor(ctx, requestctx.Actor{Type: "customer", ID: customer.Email})
	s.auditSvc.Record(actorCtx, auditdomain.Entry{
		Action:           auditdomain.ActionCustomerLogin,
		TargetCustomerID: &customer.ID,
		TargetEmail:      customer.Email,
	})

	if customer.MustResetPassword {
		c.Redirect(http.StatusFound, passwordChangePath)
		return
	}
	c.Redirect(http.StatusFound, next)
}

func (s *Server) logout(c *gin.Context) {
	ctx := c.Request.Context()
	claims := identity.Claims(c)

	if claims.SessionToken != "" {
		s.sessionSvc.Logout(ctx, claims.SessionToken)
	}
	if customer := identity.Customer(c); customer != nil {
		actorCtx := requestctx.WithActor(ctx, requestctx.Actor{Type: "customer", ID: customer.Email})
		s.auditSvc.Record(actorCtx, auditdomain.Entry{
			Action:           auditdomain.ActionCustomerLogout,
			TargetCustomerID: &customer.ID,
			TargetEmail:      customer.Email,
		})
	}

	claims.Customer = nil
	claims.SessionToken = ""
	if err := s.codec.Write(c.Writer, claims); err != nil {
		s.log.Warn("cookie write failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, loginPath)
}

func (s *Server) landing(c *gin.Context) {
	customer := identity.Customer(c)
	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"notice":   s.popNotice(c),
	})
}

// popNotice consumes the one-shot notice, rewriting the cookie when one was
// pending.
func (s *Server) popNotice(c *gin.Context) string {
	claims := identity.Claims(c)
	notice := claims.Notice
	if notice == "" {
		return ""
	}
	claims.Notice = ""
	if err := s.codec.Write(c.Writer, claims); err != nil {
		s.log.Warn("cookie write failed", zap.Error(err))
	}
	identity.SetClaims(c, claims)
	return notice
}

// safeNextURL confines the post-login redirect to portal-relative paths.
func safeNextURL(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return landingPath
	}
	return next
}
