package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	meterdomain "github.com/rentrollhq/rentroll/internal/meter/domain"
	paymentdomain "github.com/rentrollhq/rentroll/internal/payment/domain"
	payoutdomain "github.com/rentrollhq/rentroll/internal/payout/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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
		c.Header("Content-Type", "application/json")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, period.ErrInvalidMonth),
		errors.Is(err, billingdomain.ErrInvalidRates),
		errors.Is(err, billingdomain.ErrInvalidDates),
		errors.Is(err, billingdomain.ErrInvalidAdditional),
		errors.Is(err, contractdomain.ErrInvalidCharge),
		errors.Is(err, contractdomain.ErrInvalidDates),
		errors.Is(err, contractdomain.ErrNoApartments),
		errors.Is(err, meterdomain.ErrInvalidUnits),
		errors.Is(err, meterdomain.ErrMeterInactive),
		errors.Is(err, meterdomain.ErrReadingDecreased),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrOverpayment):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, meterdomain.ErrReadingExists),
		errors.Is(err, paymentdomain.ErrAlreadyPaid),
		errors.Is(err, payoutdomain.ErrPayoutNotCleared),
		errors.Is(err, payoutdomain.ErrPayoutAlreadyPaid):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrBillNotFound),
		errors.Is(err, payoutdomain.ErrPayoutNotFound),
		errors.Is(err, payoutdomain.ErrNoBillsForMonth),
		errors.Is(err, contractdomain.ErrContractNotFound),
		errors.Is(err, contractdomain.ErrTenantNotFound),
		errors.Is(err, meterdomain.ErrMeterNotFound),
		errors.Is(err, paymentdomain.ErrBillNotFound),
		errors.Is(err, propertydomain.ErrApartmentNotFound),
		errors.Is(err, propertydomain.ErrOwnerNotFound),
		errors.Is(err, propertydomain.ErrNoOwnerMapped),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
