package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/discount"
	"github.com/tbourn/go-shop-sync/internal/order"
	"github.com/tbourn/go-shop-sync/internal/services"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
)

// Error codes carried in ErrorResponse.Code. Clients branch on these, so
// they only ever get added. The middleware answers with two more of its own:
// rate_limited and bad_idempotency_key.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	ErrCodeLoginRequired   = "login_required"
	ErrCodeValidation      = "validation_failed"
	ErrCodeInvalidStep     = "invalid_step"
	ErrCodeTooManyDrafts   = "too_many_drafts"
	ErrCodeDiscountInvalid = "discount_invalid"
	ErrCodeUpstream        = "upstream_unavailable"
)

// LoginRequiredResponse is returned with 401 when an operation needs a user.
type LoginRequiredResponse struct {
	ErrorResponse
	LoginURL string `json:"login_url" example:"/login"`
}

// ValidationErrorResponse lists the custom fields that failed validation.
type ValidationErrorResponse struct {
	ErrorResponse
	Fields map[string]string `json:"fields"`
}

// errorRule maps every error matched by one of its targets to a status and
// code. Rules are tried in order.
type errorRule struct {
	status  int
	code    string
	targets []error
	// message replaces err.Error() when set.
	message string
}

var errorRules = []errorRule{
	{http.StatusNotFound, ErrCodeNotFound, []error{
		services.ErrProductNotFound,
		services.ErrSectionNotFound,
		services.ErrDraftNotFound,
		services.ErrDiscountNotFound,
		services.ErrNoActiveDiscount,
	}, ""},
	{http.StatusBadRequest, ErrCodeBadRequest, []error{
		services.ErrEmptyQuery,
		services.ErrEmptyCode,
		services.ErrInvalidCartTotal,
		order.ErrInvalidQuantity,
		order.ErrUnknownAddress,
		order.ErrUnknownField,
		order.ErrInvalidFieldValue,
	}, ""},
	{http.StatusConflict, ErrCodeInvalidStep, []error{
		order.ErrInvalidTransition,
		order.ErrNoAddress,
		order.ErrNotOpen,
		order.ErrBusy,
	}, ""},
	{http.StatusTooManyRequests, ErrCodeTooManyDrafts, []error{
		services.ErrTooManyDrafts,
	}, ""},
	{http.StatusUnprocessableEntity, ErrCodeDiscountInvalid, []error{
		discount.ErrNotStarted,
		discount.ErrExpired,
		discount.ErrBelowMinimum,
		discount.ErrAboveMaximum,
		discount.ErrUnsupportedType,
		discount.ErrInvalidValue,
	}, ""},
	{http.StatusGatewayTimeout, ErrCodeUpstream, []error{
		context.DeadlineExceeded,
	}, "upstream timed out"},
}

func (r errorRule) matches(err error) bool {
	for _, target := range r.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps a service or domain error to its status and code and
// aborts the request.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var verr *order.ValidationError
	switch {
	case errors.Is(err, order.ErrLoginRequired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, LoginRequiredResponse{
			ErrorResponse: envelope(c, ErrCodeLoginRequired, err.Error()),
			LoginURL:      h.loginURL,
		})
		return
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			ErrorResponse: envelope(c, ErrCodeValidation, err.Error()),
			Fields:        verr.Fields,
		})
		return
	}

	for _, rule := range errorRules {
		if !rule.matches(err) {
			continue
		}
		msg := rule.message
		if msg == "" {
			msg = err.Error()
		}
		respond(c, rule.status, rule.code, msg, err)
		return
	}

	switch {
	case shopapi.IsUnauthorized(err):
		respond(c, http.StatusUnauthorized, ErrCodeUnauthorized, "upstream rejected the session", err)
	case errors.As(err, new(*shopapi.APIError)), services.IsUpstreamUnavailable(err):
		respond(c, http.StatusBadGateway, ErrCodeUpstream, err.Error(), err)
	default:
		respond(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
	}
}
