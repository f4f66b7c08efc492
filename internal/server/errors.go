package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fleetwatch/internal/evaluator"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"github.com/smallbiznis/fleetwatch/internal/scheduler"
)

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	return "validation error"
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorMapping struct {
	target  error
	status  int
	typ     string
	message string
}

// First match wins.
var errorMappings = []errorMapping{
	{ErrInvalidRequest, http.StatusBadRequest, "validation_error", "validation error"},
	{evaluator.ErrInvalidOrganization, http.StatusBadRequest, "validation_error", "validation error"},
	{scheduler.ErrSweepInProgress, http.StatusConflict, "sweep_in_progress", "a sweep is already running"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many sweep triggers"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "sweep timed out"},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
}

// ErrorHandlingMiddleware renders the last handler error as {"error": {...}} unless a body was already written.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
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
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: "validation error", Errors: vErr.Errors}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, errorPayload{Type: m.typ, Message: m.message}
		}
	}
	if err != nil && obsmetrics.IsRetryable(err) {
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "service unavailable"}
	}
	return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
}

// classifyErrorForLog feeds the request logger the same type the client sees plus a reason code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, obsmetrics.ClassifyErrorReason(err)
}
