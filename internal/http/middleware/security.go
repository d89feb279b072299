package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Turn it on only when TLS reaches the app or its proxy sets
	// X-Forwarded-Proto.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks responses Cache-Control: no-store.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
	// GET responses under PublicPrefixes are sent as
	// "public, max-age=PublicMaxAge" instead of no-store when PublicMaxAge
	// is positive. shopd uses it for catalog reads.
	PublicPrefixes []string
	PublicMaxAge   time.Duration
}

type headerValue struct{ name, value string }

// SecurityHeaders sets the hardening and caching headers of every response.
// Catalog reads may be cached by browsers and CDNs as long as the backend
// itself considers them fresh; orders and discounts never are.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := []headerValue{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		static = append(static,
			headerValue{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerValue{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}

	hstsAge := opt.HSTSMaxAge
	if hstsAge <= 0 {
		hstsAge = 180 * 24 * time.Hour
	}
	hsts := "max-age=" + strconv.Itoa(int(hstsAge.Seconds())) + "; includeSubDomains; preload"

	public := ""
	if opt.PublicMaxAge > 0 {
		public = "public, max-age=" + strconv.Itoa(int(opt.PublicMaxAge.Seconds()))
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range static {
			h.Set(kv.name, kv.value)
		}

		switch {
		case public != "" && c.Request.Method == http.MethodGet && underAny(c.Request.URL.Path, opt.PublicPrefixes):
			h.Set("Cache-Control", public)
		case opt.NoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that says so in X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// underAny reports whether p is one of prefixes or lies below one of them.
func underAny(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		pre = strings.TrimRight(pre, "/")
		if pre == "" {
			continue
		}
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}
