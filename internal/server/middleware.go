package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traversoft/customer-portal/internal/identity"
	"github.com/traversoft/customer-portal/internal/requestctx"
	"go.uber.org/zap"
)

const (
	loginPath          = "/login"
	adminLoginPath     = "/admin/login"
	passwordChangePath = "/account/password"
	landingPath        = "/"
)

// NoticePermissionDenied is shown when a signed-in customer hits an
// admin-only page.
const NoticePermissionDenied = "You do not have permission to view that page."

// resetAllowedPaths are the only routes a customer flagged for a forced
// password reset may reach.
var resetAllowedPaths = map[string]struct{}{
	passwordChangePath: {},
	"/logout":          {},
}

// RequireCustomer admits only requests that resolved to a live customer
// session, bouncing everyone else to the login page with the original URL
// preserved for the post-login redirect.
func (s *Server) RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer := identity.Customer(c)
		if customer == nil {
			claims := identity.Claims(c)
			claims.NextURL = c.Request.URL.RequestURI()
			if err := s.codec.Write(c.Writer, claims); err != nil {
				s.log.Warn("cookie write failed", zap.Error(err))
			}
			identity.SetClaims(c, claims)
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		if customer.MustResetPassword {
			if _, ok := resetAllowedPaths[c.Request.URL.Path]; !ok {
				c.Redirect(http.StatusFound, passwordChangePath)
				c.Abort()
				return
			}
		}

		ctx := requestctx.WithActor(c.Request.Context(), requestctx.Actor{
			Type: "customer",
			ID:   customer.Email,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin admits only cookie-asserted admins. A signed-in customer gets
// bounced to their landing page with a permission notice; anonymous visitors
// go to the admin login.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := identity.Admin(c)
		if admin != nil && admin.IsAdmin {
			ctx := requestctx.WithActor(c.Request.Context(), requestctx.Actor{
				Type: "admin",
				ID:   admin.Username,
			})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if identity.Customer(c) != nil {
			claims := identity.Claims(c)
			claims.Notice = NoticePermissionDenied
			if err := s.codec.Write(c.Writer, claims); err != nil {
				s.log.Warn("cookie write failed", zap.Error(err))
			}
			c.Redirect(http.StatusFound, landingPath)
			c.Abort()
			return
		}

		c.Redirect(http.StatusFound, adminLoginPath)
		c.Abort()
	}
}
