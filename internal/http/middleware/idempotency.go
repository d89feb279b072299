package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets a client retry an order submission without adding
// the line to the cart twice. The value must stay the same across retries.
const HeaderIdempotencyKey = "Idempotency-Key"

const ctxKeyIdem = "idempotency"

// defaultKeyPattern accepts RFC 7230 token-ish keys, UUIDs included.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions bounds what counts as a valid key. Zero values select
// 200 bytes and defaultKeyPattern.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether an unexpired submission record exists
// for (userID, draftID, key). Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, draftID, key string, now time.Time) (bool, error)

type idemState struct {
	key    string
	replay bool
}

func idemFrom(c *gin.Context) idemState {
	v, _ := c.Get(ctxKeyIdem)
	st, _ := v.(idemState)
	return st
}

// GetIdempotencyKey returns the validated key of the request, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	st := idemFrom(c)
	return st.key, st.key != ""
}

// IsReplay reports whether the request repeats a submission that already
// reached the cart. Replays are not rate limited.
func IsReplay(c *gin.Context) bool {
	return idemFrom(c).replay
}

// IdempotencyValidator checks the Idempotency-Key header when present and
// answers 400 bad_idempotency_key for malformed keys. For signed-in callers
// it asks lookup whether the key was already used on the draft named by the
// ":id" route parameter, and flags the request as a replay if so.
//
// The order service repeats the lookup before submitting; the flag here only
// exempts replays from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			rejections.WithLabelValues("bad_idempotency_key").Inc()
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		st := idemState{key: key}
		uid, draftID := userIDFrom(c), c.Param("id")
		if lookup != nil && uid != "" && draftID != "" {
			found, err := lookup(c.Request.Context(), uid, draftID, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			st.replay = err == nil && found
		}
		c.Set(ctxKeyIdem, st)
		c.Next()
	}
}
