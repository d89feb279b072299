// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the upstream shop API, the cache backend,
// authentication, rate limiting, and observability.
//
// A .env file in the working directory (or the file named by ENV_FILE) is
// loaded first for local development; variables already set in the process
// environment win.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "shopd")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ShopConfig points at the upstream shop REST API.
type ShopConfig struct {
	BaseURL   string        // SHOP_API_BASE_URL
	AssetsURL string        // SHOP_ASSETS_URL, prefix for relative image paths
	Timeout   time.Duration // SHOP_API_TIMEOUT, per upstream request
	RPS       float64       // SHOP_API_RPS, outbound limit (0 = unlimited)
	Burst     int           // SHOP_API_BURST
}

// CacheConfig selects and tunes the persistent cache.
type CacheConfig struct {
	Backend       string        // CACHE_BACKEND: sqlite|redis
	DBPath        string        // CACHE_DB_PATH, sqlite file (defaults to DB_PATH)
	TTL           time.Duration // CACHE_TTL, freshness window
	MaxListings   int           // CACHE_MAX_LISTINGS, filtered product listings held in memory
	RefreshLists  int           // CACHE_REFRESH_LISTINGS, filtered listings a forced refresh refetches
	RedisAddr     string        // REDIS_ADDR
	RedisDB       int           // REDIS_DB
	RedisPassword string        // REDIS_PASSWORD
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWTSecret string        // JWT_SECRET; empty disables login
	Issuer    string        // JWT_ISSUER
	TokenTTL  time.Duration // JWT_TTL
	LoginURL  string        // LOGIN_URL, returned with login_required errors
}

// OrdersConfig tunes the order drafts.
type OrdersConfig struct {
	DraftTTL         time.Duration // DRAFT_TTL, idle eviction
	SweepInterval    time.Duration // DRAFT_SWEEP_INTERVAL
	MaxDraftsPerUser int           // MAX_DRAFTS_PER_USER
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path (idempotency records, default cache file)

	Shop   ShopConfig
	Cache  CacheConfig
	Auth   AuthConfig
	Orders OrdersConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main: it panics on any configuration error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, after the optional .env file, into a Config.
// Unset variables take their defaults; malformed values are errors rather
// than silently replaced. All problems are reported together.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return Config{}, err
	}

	var e env
	dbPath := e.str("DB_PATH", "shopd.db")
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    basePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath: dbPath,

		Shop: ShopConfig{
			BaseURL:   strings.TrimRight(e.str("SHOP_API_BASE_URL", "http://localhost:9000/api"), "/"),
			AssetsURL: strings.TrimRight(e.str("SHOP_ASSETS_URL", ""), "/"),
			Timeout:   e.duration("SHOP_API_TIMEOUT", 15*time.Second),
			RPS:       e.number("SHOP_API_RPS", 20),
			Burst:     e.integer("SHOP_API_BURST", 40),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(e.str("CACHE_BACKEND", "sqlite")),
			DBPath:        e.str("CACHE_DB_PATH", dbPath),
			TTL:           e.duration("CACHE_TTL", 5*time.Minute),
			MaxListings:   e.integer("CACHE_MAX_LISTINGS", 256),
			RefreshLists:  e.integer("CACHE_REFRESH_LISTINGS", 16),
			RedisAddr:     e.str("REDIS_ADDR", "localhost:6379"),
			RedisDB:       e.integer("REDIS_DB", 0),
			RedisPassword: e.str("REDIS_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: e.str("JWT_SECRET", ""),
			Issuer:    e.str("JWT_ISSUER", "shopd"),
			TokenTTL:  e.duration("JWT_TTL", 24*time.Hour),
			LoginURL:  e.str("LOGIN_URL", "/login"),
		},
		Orders: OrdersConfig{
			DraftTTL:         e.duration("DRAFT_TTL", 30*time.Minute),
			SweepInterval:    e.duration("DRAFT_SWEEP_INTERVAL", time.Minute),
			MaxDraftsPerUser: e.integer("MAX_DRAFTS_PER_USER", 5),
		},

		RateRPS:   e.number("RATE_RPS", 5),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: e.list("CORS_ALLOWED_ORIGINS")},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "shopd"),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, errors.Join(append(e.errs, cfg.validate()...)...)
}

// rule is one validation: the message is reported when bad holds.
type rule struct {
	bad bool
	msg string
}

func (c Config) validate() []error {
	shop, shopErr := url.Parse(c.Shop.BaseURL)
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	rules := []rule{
		{!oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
			"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{blank(c.Port), "PORT must not be empty"},
		{c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
			"timeouts must be positive durations"},
		{c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{blank(c.DBPath), "DB_PATH must not be empty"},
		{shopErr != nil || shop.Scheme == "" || shop.Host == "", "SHOP_API_BASE_URL must be an absolute URL"},
		{c.Shop.Timeout <= 0, "SHOP_API_TIMEOUT must be > 0"},
		{c.Shop.RPS < 0, "SHOP_API_RPS must be >= 0"},
		{c.Shop.Burst < 1, "SHOP_API_BURST must be >= 1"},
		{!oneOf(c.Cache.Backend, "sqlite", "redis"), "CACHE_BACKEND must be one of: sqlite, redis"},
		{c.Cache.Backend == "sqlite" && blank(c.Cache.DBPath), "CACHE_DB_PATH must not be empty"},
		{c.Cache.Backend == "redis" && blank(c.Cache.RedisAddr), "REDIS_ADDR must not be empty"},
		{c.Cache.TTL <= 0, "CACHE_TTL must be > 0"},
		{c.Cache.MaxListings < 1, "CACHE_MAX_LISTINGS must be >= 1"},
		{c.Cache.RefreshLists < 0, "CACHE_REFRESH_LISTINGS must be >= 0"},
		{c.Auth.TokenTTL <= 0, "JWT_TTL must be > 0"},
		{c.Orders.DraftTTL <= 0 || c.Orders.SweepInterval <= 0, "DRAFT_TTL and DRAFT_SWEEP_INTERVAL must be > 0"},
		{c.Orders.MaxDraftsPerUser < 0, "MAX_DRAFTS_PER_USER must be >= 0"},
		{c.RateRPS < 0, "RATE_RPS must be >= 0"},
		{c.RateBurst < 1, "RATE_BURST must be >= 1"},
		{c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	var errs []error
	for _, r := range rules {
		if r.bad {
			errs = append(errs, errors.New(r.msg))
		}
	}
	return errs
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// loadDotEnv exports the variables of path, ".env" when empty, without
// overriding ones already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// env reads typed variables and keeps every parse failure. Empty values
// count as unset.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *env) fail(k, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return n
}

func (e *env) number(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return f
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return d
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, errors.New("not a boolean"))
	return def
}

// list splits a comma-separated variable, dropping blank items.
func (e *env) list(k string) []string {
	v, _ := e.lookup(k)
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// basePath returns p with one leading slash and no trailing slash; blank
// means root.
func basePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
