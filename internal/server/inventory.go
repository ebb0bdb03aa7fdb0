package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traversoft/customer-portal/internal/identity"
)

// customerInventory proxies the ERP stock query, scoped to the accounts the
// signed-in customer may see.
func (s *Server) customerInventory(c *gin.Context) {
	customer := identity.Customer(c)
	names, unrestricted := customer.AccountNames()

	items, err := s.inventory.CustomerInventory(c.Request.Context(), names, unrestricted)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// erpCustomerNames feeds the account picker on the admin customer form.
func (s *Server) erpCustomerNames(c *gin.Context) {
	names, err := s.inventory.CustomerNames(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer_names": names})
}
