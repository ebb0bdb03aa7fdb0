package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/identity"
)

func (s *Server) showPasswordChange(c *gin.Context) {
	customer := identity.Customer(c)
	c.JSON(http.StatusOK, gin.H{
		"must_reset_password": customer.MustResetPassword,
		"notice":              s.popNotice(c),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	customer := identity.Customer(c)
	ctx := c.Request.Context()

	if err := s.customerSvc.ChangePassword(ctx, customer.ID, req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:           auditdomain.ActionPasswordChanged,
		TargetCustomerID: &customer.ID,
		TargetEmail:      customer.Email,
	})

	c.Redirect(http.StatusFound, landingPath)
}
