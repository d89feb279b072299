package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx answer:
//
//	{"request_id": "5f0c...", "code": "not_found", "message": "draft not found"}
type ErrorResponse struct {
	// Matches the X-Request-ID response header.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// One of the ErrCode* constants.
	Code string `json:"code" example:"not_found"`
	// Safe to show to end users.
	Message string `json:"message" example:"resource not found"`
}

func envelope(c *gin.Context, code, msg string) ErrorResponse {
	return ErrorResponse{RequestID: middleware.RequestIDFrom(c), Code: code, Message: msg}
}

// respond aborts with the error envelope. Server-side failures are logged
// together with their cause; client errors are left to the access log.
func respond(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(msg)
	}
	c.AbortWithStatusJSON(status, envelope(c, code, msg))
}

func fail(c *gin.Context, status int, code, msg string) { respond(c, status, code, msg, nil) }

// Fail writes the error envelope for callers outside this package, such as
// the router's NoRoute and NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
