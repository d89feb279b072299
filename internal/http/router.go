// Package httpapi assembles the shopd HTTP surface: the Gin engine, its
// middleware stack and the storefront routes under the configured base path.
//
// The stack runs in three layers. The edge layer (tracing, request ids,
// access log, recovery, body cap, gzip) sees every request. Metrics and the
// /metrics scrape come next. Admission (session, Idempotency-Key, rate
// limits) and response policy (CORS, security and cache headers) apply to
// everything mounted after that. Catalog reads may be cached publicly; every
// other response is marked no-store.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/config"
	"github.com/tbourn/go-shop-sync/internal/http/handlers"
	"github.com/tbourn/go-shop-sync/internal/http/middleware"
	"github.com/tbourn/go-shop-sync/internal/repo"
)

// Deps are the collaborators the router mounts. Tokens may be nil, which
// leaves every request anonymous. CacheDB is the database holding the cache
// table, nil when the cache lives elsewhere (redis).
type Deps struct {
	DB        *gorm.DB
	CacheDB   *gorm.DB
	Catalog   handlers.CatalogService
	Discounts handlers.DiscountService
	Orders    handlers.OrderService
	Tokens    middleware.TokenParser
}

// refreshRPS and refreshBurst throttle full catalog refreshes per caller:
// one every ten seconds.
const (
	refreshRPS   = 0.1
	refreshBurst = 1
)

// RegisterRoutes installs the middleware stack on r and mounts the API under
// cfg.APIBasePath. /metrics is registered between the metrics middleware and
// admission, so scrapes are counted but never authenticated or throttled.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(edgeChain(cfg)...)
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(admissionChain(deps, cfg)...)
	r.Use(policyChain(cfg)...)

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
	r.GET("/health", health(deps.DB, deps.CacheDB))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	mountAPI(apiGroup(r, cfg.APIBasePath), handlers.New(deps.Catalog, deps.Discounts, deps.Orders, cfg.Auth.LoginURL))
}

// edgeChain runs for every request. The request id must exist before the
// access log starts, and recovery sits inside the logger so panics are logged
// with their status.
func edgeChain(cfg config.Config) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderIdempotencyKey},
			QuietPaths:  []string{"/health", "/metrics"},
		}),
		middleware.Recovery(),
		capBody(maxBodyBytes),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	}
}

// admissionChain resolves the caller, then checks the Idempotency-Key. The
// key check runs before the limiter because replays of a stored submission
// are let through unthrottled.
func admissionChain(deps Deps, cfg config.Config) []gin.HandlerFunc {
	var lookup middleware.IdempotencyLookup
	if deps.DB != nil {
		lookup = func(ctx context.Context, userID, draftID, key string, now time.Time) (bool, error) {
			_, err := repo.FindReceipt(ctx, deps.DB, userID, draftID, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		}
	}
	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	return []gin.HandlerFunc{
		middleware.OptionalAuth(deps.Tokens),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup),
		limiter.Handler(),
	}
}

func policyChain(cfg config.Config) []gin.HandlerFunc {
	security := middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		NoStore:        true,
		EnablePolicy:   true,
		PublicPrefixes: []string{joinPath(cfg.APIBasePath, "/catalog")},
		PublicMaxAge:   cfg.Cache.TTL,
	})
	return append(corsChain(cfg.CORS.AllowedOrigins), security)
}

func mountAPI(api *gin.RouterGroup, h *handlers.Handlers) {
	refresh := middleware.NewRateLimiter(refreshRPS, refreshBurst, middleware.KeyByUserOrIP())

	catalog := api.Group("/catalog")
	catalog.GET("/products", h.ListProducts)
	catalog.GET("/products/:id", h.GetProduct)
	catalog.GET("/categories", h.ListCategories)
	catalog.GET("/tags", h.ListTags)
	catalog.GET("/sections", h.ListSections)
	catalog.GET("/sections/:id", h.GetSection)
	catalog.GET("/search", h.SearchProducts)
	catalog.POST("/refresh", refresh.Handler(), h.RefreshCatalog)

	api.GET("/me", h.Me)
	api.GET("/me/addresses", h.ListAddresses)

	api.POST("/discounts/evaluate", h.EvaluateDiscount)
	cart := api.Group("/cart/discount")
	cart.GET("", h.GetCartDiscount)
	cart.POST("", h.ApplyCartDiscount)
	cart.DELETE("", h.RemoveCartDiscount)

	api.POST("/orders", h.OpenOrder)
	order := api.Group("/orders/:id")
	order.GET("", h.GetOrder)
	order.DELETE("", h.CloseOrder)
	order.POST("/shipping", h.ToShipping)
	order.POST("/shipping/next", h.NextFromShipping)
	order.PUT("/address", h.SelectAddress)
	order.POST("/addresses", h.AddAddress)
	order.PUT("/fields", h.SetFields)
	order.POST("/submit", h.SubmitOrder)
	order.POST("/back", h.BackOrder)
}

// Headers browsers may send and read on cross-origin calls.
var (
	corsRequestHeaders  = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	corsResponseHeaders = []string{middleware.HeaderRequestID, "Content-Length", "Retry-After", "Idempotency-Replayed"}
)

// corsChain allows any origin, without credentials, when origins is empty.
// Otherwise only listed origins are echoed. The leading handler sets the
// header on same-origin requests too, which cors.New leaves alone.
func corsChain(origins []string) []gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  corsRequestHeaders,
		ExposeHeaders: corsResponseHeaders,
		MaxAge:        12 * time.Hour,
	}
	listed := make(map[string]bool, len(origins))
	for _, o := range origins {
		listed[o] = true
	}
	if len(listed) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	preset := func(c *gin.Context) {
		switch origin := c.GetHeader("Origin"); {
		case cfg.AllowAllOrigins:
			c.Header("Access-Control-Allow-Origin", "*")
		case listed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Next()
	}
	return []gin.HandlerFunc{preset, cors.New(cfg)}
}

// HealthResponse reports liveness and, for the sqlite cache, its size.
type HealthResponse struct {
	Status         string     `json:"status" example:"ok"`
	Database       string     `json:"database,omitempty" example:"ok"`
	CacheEntries   *int64     `json:"cache_entries,omitempty"`
	CacheLastWrite *time.Time `json:"cache_last_write,omitempty"`
}

// health answers 200 while the database is reachable. Cache statistics are
// best effort and only reported for a sqlite cache.
func health(db, cacheDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := HealthResponse{Status: "ok"}
		if db == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp.Database = "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			resp.Status, resp.Database = "degraded", "unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		if cacheDB != nil {
			if n, last, err := repo.CacheStats(ctx, cacheDB, cache.Namespace); err == nil {
				resp.CacheEntries, resp.CacheLastWrite = &n, last
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

const maxBodyBytes = 1 << 20

// capBody makes body reads past n bytes fail, which binding reports as 400.
func capBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// apiGroup treats an empty or "/" base path as the root.
func apiGroup(r *gin.Engine, base string) *gin.RouterGroup {
	if strings.Trim(base, "/") == "" {
		return r.Group("")
	}
	return r.Group(base)
}

func joinPath(base, p string) string {
	return strings.TrimRight(base, "/") + p
}
