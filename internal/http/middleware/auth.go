package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/auth"
	"github.com/tbourn/go-shop-sync/internal/domain"
)

// CtxUserID is the Gin context key holding the authenticated user id.
//
// A valid bearer token puts the user both here (read by the rate limiter,
// metrics and the idempotency validator) and on the request context
// (domain.WithUser, read by the services and forwarded upstream by the shop
// client). Missing or invalid tokens leave the request anonymous; endpoints
// that need a user answer 401 themselves.
const CtxUserID = "userID"

// TokenParser verifies a raw bearer token. *auth.Manager implements it.
type TokenParser interface {
	Parse(ctx context.Context, raw string) (auth.Claims, error)
}

// OptionalAuth authenticates the request when it carries a valid
// "Authorization: Bearer" token. A nil parser disables authentication.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if tokens == nil || raw == "" {
			c.Next()
			return
		}
		claims, err := tokens.Parse(c.Request.Context(), raw)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("ignoring invalid bearer token")
			c.Next()
			return
		}
		u := domain.User{ID: claims.UserID, Login: claims.Login, Token: raw}
		c.Set(CtxUserID, u.ID)
		c.Request = c.Request.WithContext(domain.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

// userIDFrom returns the id stored by OptionalAuth, or "" for anonymous
// callers.
func userIDFrom(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

func extractBearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
