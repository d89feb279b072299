package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	redacted          = "[REDACTED]"
	maxQueryLogLength = 2048
)

// RedactOptions extends the built-in redaction of RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are logged as "[REDACTED]" in addition to Authorization,
	// Cookie and Set-Cookie.
	MaskHeaders []string
	// MaskParams are query parameters logged as "[REDACTED]" in addition to
	// token, access_token and password.
	MaskParams []string
	// QuietPaths are logged at debug level when they succeed (probes,
	// metrics scrapes).
	QuietPaths []string
}

// Values that are scrubbed wherever they appear, most specific first. UUIDs
// go before phone numbers so the looser phone pattern never eats their digit
// groups.
var scrubPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), "[REDACTED:token]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

func scrub(s string) string {
	for _, p := range scrubPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

type scrubber struct {
	headers map[string]bool // canonical header names
	params  map[string]bool // lower-case parameter names
	quiet   map[string]bool
}

func newScrubber(opts RedactOptions) scrubber {
	s := scrubber{
		headers: map[string]bool{"Authorization": true, "Cookie": true, "Set-Cookie": true},
		params:  map[string]bool{"token": true, "access_token": true, "password": true},
		quiet:   map[string]bool{},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.TrimSpace(h); h != "" {
			s.headers[http.CanonicalHeaderKey(h)] = true
		}
	}
	for _, p := range opts.MaskParams {
		if p = strings.TrimSpace(p); p != "" {
			s.params[strings.ToLower(p)] = true
		}
	}
	for _, p := range opts.QuietPaths {
		s.quiet[p] = true
	}
	return s
}

// query re-encodes raw with masked parameters blanked and the remaining
// values scrubbed. Unparseable queries are scrubbed as plain text.
func (s scrubber) query(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return truncate(scrub(raw), maxQueryLogLength)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if s.params[strings.ToLower(k)] {
				b.WriteString(redacted)
			} else {
				b.WriteString(scrub(v))
			}
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

func (s scrubber) header(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	for k, vv := range h {
		if s.headers[http.CanonicalHeaderKey(k)] {
			d.Str(k, redacted)
			continue
		}
		d.Str(k, scrub(strings.Join(vv, ", ")))
	}
	return d
}

// RedactingLogger writes one structured access log line per request and
// installs the request-scoped logger returned by LoggerFrom. Bodies are never
// logged; query strings and headers are scrubbed of tokens, UUIDs, emails and
// phone numbers.
//
// The level follows the outcome: error for 5xx or recorded Gin errors, warn
// for 4xx, info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	s := newScrubber(opts)
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		lg := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger()
		c.Set(ctxKeyLogger, &lg)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= http.StatusBadRequest:
			ev = lg.Warn()
		case s.quiet[route]:
			ev = lg.Debug()
		default:
			ev = lg.Info()
		}
		ev.
			Str("user_id", userIDFrom(c)).
			Str("path", scrub(c.Request.URL.Path)).
			Str("query", s.query(c.Request.URL.RawQuery)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", s.header(c.Request.Header)).
			Msg("http_request")
	}
}
