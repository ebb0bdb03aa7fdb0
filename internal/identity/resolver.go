package identity

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/traversoft/customer-portal/internal/auth/domain"
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	"github.com/traversoft/customer-portal/internal/config"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NoticeSessionEnded is the one-shot message shown after a forced logout.
const NoticeSessionEnded = "Your session was ended. Please sign in again."

var staticPrefixes = []string{"/static/", "/assets/"}

type Params struct {
	fx.In

	Log       *zap.Logger
	Codec     *cookie.Codec
	Sessions  sessiondomain.Service
	Customers customerdomain.Service
	Policy    *config.SessionPolicyHolder
}

type Resolver struct {
	log       *zap.Logger
	codec     *cookie.Codec
	sessions  sessiondomain.Service
	customers customerdomain.Service
	policy    *config.SessionPolicyHolder

	// coinFlip is swappable so tests can force or suppress maintenance.
	coinFlip func() float64
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:       p.Log.Named("identity.resolver"),
		codec:     p.Codec,
		sessions:  p.Sessions,
		customers: p.Customers,
		policy:    p.Policy,
		coinFlip:  rand.Float64,
	}
}

// Middleware resolves the request's identity from the portal cookie. The
// cookie is advisory only: the session row and the customer record decide
// who, if anyone, the bearer is.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isStaticAsset(c.Request.URL.Path) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		// Piggyback session maintenance on a small fraction of requests
		// instead of running a dedicated scheduler.
		if r.coinFlip() < r.policy.Get().PruneProbability {
			r.sessions.RunMaintenance(ctx)
		}

		claims := r.codec.Read(c.Request)
		c.Set(claimsKey, claims)

		if claims.IsAdmin {
			c.Set(adminKey, &authdomain.AdminIdentity{
				Username:    claims.AdminUsername,
				DisplayName: claims.AdminName,
				IsAdmin:     true,
				AuthMethod:  authdomain.AuthMethod(claims.AdminAuthMethod),
			})
		}

		// A customer identity needs both the snapshot and the token.
		if claims.Customer == nil || claims.SessionToken == "" {
			c.Next()
			return
		}

		record, err := r.sessions.Get(ctx, claims.SessionToken)
		if err != nil {
			// Only an authoritative "no such row" revokes the cookie. A
			// store hiccup resolves to anonymous for this request and
			// leaves the token in place so the next request can recover.
			if errors.Is(err, sessiondomain.ErrSessionNotFound) {
				r.forceLogout(c, claims, "session revoked")
			} else {
				r.log.Warn("session lookup failed", zap.Error(err))
			}
			c.Next()
			return
		}
		if record.CustomerID != claims.Customer.ID {
			r.forceLogout(c, claims, "session owner mismatch")
			c.Next()
			return
		}

		// The database record is the source of truth for the profile and
		// the active/must-reset flags, not the cookie snapshot.
		customer, err := r.customers.GetByID(ctx, record.CustomerID)
		if err != nil {
			if errors.Is(err, customerdomain.ErrCustomerNotFound) {
				r.forceLogout(c, claims, "customer missing")
			} else {
				r.log.Warn("customer reload failed", zap.Error(err))
			}
			c.Next()
			return
		}
		if !customer.IsActive {
			r.forceLogout(c, claims, "customer deactivated")
			c.Next()
			return
		}

		r.sessions.Heartbeat(ctx, claims.SessionToken, customer.ID)
		c.Set(customerKey, customer)
		c.Next()
	}
}

// forceLogout strips the customer identity from the cookie while leaving any
// admin identity intact, and queues a one-shot notice for the next page.
func (r *Resolver) forceLogout(c *gin.Context, claims cookie.Claims, reason string) {
	r.log.Info("forced logout",
		zap.String("reason", reason),
		zap.String("customer_id", claims.Customer.ID.String()),
	)

	claims.Customer = nil
	claims.SessionToken = ""
	claims.Notice = NoticeSessionEnded
	if err := r.codec.Write(c.Writer, claims); err != nil {
		r.log.Warn("cookie rewrite failed", zap.Error(err))
	}
	c.Set(claimsKey, claims)
}

func isStaticAsset(path string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return path == "/favicon.ico"
}
