// Package middleware holds the Gin middleware shopd runs in front of its
// handlers: correlation ids, scrubbed access logs, panic recovery, Prometheus
// metrics, optional bearer auth, Idempotency-Key validation, per-caller rate
// limits and response headers.
//
// Handlers read request-scoped state through the accessors in this package
// (RequestIDFrom, LoggerFrom, GetIdempotencyKey) and never touch the Gin
// context keys directly.
//
// The router installs them in this order:
//
//	RequestID -> RedactingLogger -> Recovery -> Metrics -> OptionalAuth ->
//	IdempotencyValidator -> RateLimiter -> SecurityHeaders
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	ctxKeyRequestID = "requestID"
	ctxKeyLogger    = "logger"
)

// Inbound ids are reused only when they look like ids; anything else would
// be copied into every log line of the request.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,128}$`)

// RequestID reuses a well-formed X-Request-ID from the client or mints a
// UUID, stores it on the context and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id of the request, falling back to
// the response header when RequestID did not run.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.GetString(ctxKeyRequestID); rid != "" {
		return rid
	}
	return c.Writer.Header().Get(HeaderRequestID)
}

// LoggerFrom returns the request-scoped logger installed by RedactingLogger,
// or the global logger tagged with the request id. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	lg := log.Logger
	if rid := RequestIDFrom(c); rid != "" {
		lg = lg.With().Str("request_id", rid).Logger()
	}
	return &lg
}

// Recovery turns a panic into a 500 with the usual error envelope. When the
// handler had already started writing, only the status is recorded.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// abortJSON stops the chain with the error envelope the handlers use:
// {"request_id", "code", "message"}.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}

// truncate caps s at max bytes for logging. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
