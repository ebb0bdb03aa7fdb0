package server

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	"github.com/traversoft/customer-portal/internal/auth/password"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	"go.uber.org/zap"
)

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("status") == "active",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

type createCustomerRequest struct {
	FirstName   string   `form:"first_name" json:"first_name"`
	LastName    string   `form:"last_name" json:"last_name"`
	Email       string   `form:"email" json:"email"`
	Password    string   `form:"password" json:"password"`
	ERPAccounts []string `form:"erp_accounts" json:"erp_accounts"`
	IsActive    bool     `form:"is_active" json:"is_active"`
}

func (s *Server) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.customerSvc.Create(ctx, customerdomain.CreateCustomerRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		ERPAccounts: customerdomain.JoinAccountNames(req.ERPAccounts),
		IsActive:    req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:           auditdomain.ActionCustomerCreated,
		TargetCustomerID: &customer.ID,
		TargetEmail:      customer.Email,
		Details: map[string]any{
			"erp_accounts": customer.ERPAccounts,
			"is_active":    customer.IsActive,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

func (s *Server) getCustomer(c *gin.Context) {
	id, err := parseCustomerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	customer, err := s.customerSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

type updateCustomerRequest struct {
	FirstName   string   `form:"first_name" json:"first_name"`
	LastName    string   `form:"last_name" json:"last_name"`
	Email       string   `form:"email" json:"email"`
	ERPAccounts []string `form:"erp_accounts" json:"erp_accounts"`
	IsActive    bool     `form:"is_active" json:"is_active"`
	// NewPassword, when set, overwrites the password and forces a reset.
	NewPassword string `form:"new_password" json:"new_password"`
}

func (s *Server) updateCustomer(c *gin.Context) {
	id, err := parseCustomerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	customer, changes, err := s.customerSvc.Update(ctx, customerdomain.UpdateCustomerRequest{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		ERPAccounts: customerdomain.JoinAccountNames(req.ERPAccounts),
		IsActive:    req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	details := map[string]any{}
	for column, change := range changes {
		details[column] = map[string]string{"from": change[0], "to": change[1]}
	}

	if req.NewPassword != "" {
		customer, err = s.customerSvc.AdminSetPassword(ctx, id, req.NewPassword)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		details["password"] = "reset by admin"
	}

	if len(details) > 0 {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:           auditdomain.ActionCustomerUpdated,
			TargetCustomerID: &customer.ID,
			TargetEmail:      customer.Email,
			Details:          details,
		})
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (s *Server) deactivateCustomer(c *gin.Context) {
	s.setCustomerActive(c, false, auditdomain.ActionCustomerDeactivated)
}

func (s *Server) reactivateCustomer(c *gin.Context) {
	s.setCustomerActive(c, true, auditdomain.ActionCustomerReactivated)
}

func (s *Server) setCustomerActive(c *gin.Context, active bool, action string) {
	id, err := parseCustomerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	customer, err := s.customerSvc.SetActive(ctx, id, active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:           action,
		TargetCustomerID: &customer.ID,
		TargetEmail:      customer.Email,
	})

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (s *Server) resetCustomerPassword(c *gin.Context) {
	id, err := parseCustomerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	temp, err := password.GenerateTemporary()
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	customer, err := s.customerSvc.AdminSetPassword(ctx, id, temp)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Audited before the send attempt: the password did change whether or
	// not the email goes through.
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:           auditdomain.ActionPasswordReset,
		TargetCustomerID: &customer.ID,
		TargetEmail:      customer.Email,
	})

	body := fmt.Sprintf(
		"Hello %s,\n\nA temporary password has been set for your portal account: %s\n\nYou will be asked to choose a new password on your next sign-in.\n",
		customer.DisplayName(), temp,
	)
	if err := s.mailer.Send(ctx, []string{customer.Email}, "Your portal password has been reset", body); err != nil {
		s.log.Warn("reset email failed",
			zap.String("customer_email", customer.Email),
			zap.Error(err),
		)
		// The reset already took effect; hand the admin the temporary
		// password so they can relay it out of band.
		c.JSON(http.StatusOK, gin.H{"email_sent": false, "temp_password": temp})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email_sent": true})
}

func parseCustomerID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
