// Package identity resolves the bearer of each request against the session
// store and exposes the result to handlers and guards.
package identity

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/traversoft/customer-portal/internal/auth/domain"
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
)

const (
	customerKey = "identity.customer"
	adminKey    = "identity.admin"
	claimsKey   = "identity.claims"
)

// Customer returns the authenticated customer, or nil for anonymous and
// admin-only requests.
func Customer(c *gin.Context) *customerdomain.Customer {
	if v, ok := c.Get(customerKey); ok {
		if customer, ok := v.(*customerdomain.Customer); ok {
			return customer
		}
	}
	return nil
}

// Admin returns the authenticated admin identity, or nil.
func Admin(c *gin.Context) *authdomain.AdminIdentity {
	if v, ok := c.Get(adminKey); ok {
		if admin, ok := v.(*authdomain.AdminIdentity); ok {
			return admin
		}
	}
	return nil
}

// Claims returns the cookie claims as of this request, reflecting any
// rewrite the resolver performed.
func Claims(c *gin.Context) cookie.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(cookie.Claims); ok {
			return claims
		}
	}
	return cookie.Claims{}
}

// SetClaims replaces the claims visible to downstream handlers. Callers are
// responsible for writing the cookie as well.
func SetClaims(c *gin.Context, claims cookie.Claims) {
	c.Set(claimsKey, claims)
}
