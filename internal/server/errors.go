package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	authdomain "github.com/traversoft/customer-portal/internal/auth/domain"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	"github.com/traversoft/customer-portal/internal/erp"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware turns errors queued via AbortWithError into JSON
// responses. It runs last so handlers stay free of status-code bookkeeping.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, customerdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid credentials",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrCustomerNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, customerdomain.ErrEmailTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "email already registered",
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrWeakPassword),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, erp.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "inventory backend unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog labels request errors for the access log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
