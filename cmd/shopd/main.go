// Command shopd serves the storefront API: a cached, stale-while-revalidate
// view of the upstream shop catalog, discount evaluation, and the order
// composition flow that ends in a cart submission.
//
//go:generate swag init -g cmd/shopd/main.go -o docs --parseInternal
//
//	@title          shopd API
//	@version        1.0
//	@description    Storefront backend: catalog sync, discounts and order drafts.
//	@BasePath       /api/v1
//	@securityDefinitions.apikey BearerAuth
//	@in             header
//	@name           Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-shop-sync/docs"
	"github.com/tbourn/go-shop-sync/internal/auth"
	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/config"
	httpapi "github.com/tbourn/go-shop-sync/internal/http"
	"github.com/tbourn/go-shop-sync/internal/http/middleware"
	"github.com/tbourn/go-shop-sync/internal/inflight"
	"github.com/tbourn/go-shop-sync/internal/observability"
	"github.com/tbourn/go-shop-sync/internal/repo"
	"github.com/tbourn/go-shop-sync/internal/services"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
	"github.com/tbourn/go-shop-sync/internal/sysutil"
)

// version is set at link time: -ldflags "-X main.version=1.2.3".
var version string

func main() {
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stderr, cfg.LogPretty, cfg.OTEL.ServiceName)
	ver := sysutil.Version(version)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver,
		attribute.String("shop.api.base_url", cfg.Shop.BaseURL),
		attribute.String("cache.backend", cfg.Cache.Backend),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.EnableTracing(db); err != nil {
		log.Warn().Err(err).Msg("gorm tracing disabled")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	backend, cacheDB, closeCache := openCache(ctx, cfg, db)
	defer closeCache()
	store := cache.New(backend)

	httpClient := &http.Client{Timeout: cfg.Shop.Timeout}
	client := shopapi.New(httpClient, cfg.Shop.BaseURL, cfg.Shop.AssetsURL)
	client.Token = shopapi.UserToken
	if cfg.Shop.RPS > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(cfg.Shop.RPS), cfg.Shop.Burst)
	}

	flights := inflight.New()
	catalog := services.NewSyncService(store, flights, client)
	catalog.TTL = cfg.Cache.TTL
	catalog.MaxListings = cfg.Cache.MaxListings
	catalog.RefreshListings = cfg.Cache.RefreshLists
	discounts := services.NewDiscountService(store, flights, client)
	orders := services.NewOrderService(db, catalog, client)
	orders.DraftTTL = cfg.Orders.DraftTTL
	orders.IdemTTL = cfg.IdempotencyTTL
	orders.MaxDraftsPerUser = cfg.Orders.MaxDraftsPerUser

	catalog.Activate(ctx)
	go orders.RunJanitor(ctx, cfg.Orders.SweepInterval)

	// A nil *auth.Manager inside the interface would not be nil.
	var tokens middleware.TokenParser
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	} else {
		log.Warn().Msg("JWT_SECRET not set; every request is anonymous")
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	docs.SwaggerInfo.Version = ver
	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		CacheDB:   cacheDB,
		Catalog:   catalog,
		Discounts: discounts,
		Orders:    orders,
		Tokens:    tokens,
	}, cfg)

	addr := net.JoinHostPort("", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", ver).Msg("shopd started")
		errCh <- srv.ListenAndServe()
	}()

	exitCode := 0
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			_ = srv.Close()
		}
		cancel()
		log.Info().Msg("server stopped gracefully")

	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped with error")
			exitCode = 1
		}
	}

	// Stop the janitor, then let background catalog writes land before the
	// cache goes away.
	stop()
	catalog.Wait()

	octx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownOTel(octx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	cancel()

	if exitCode != 0 {
		closeCache()
		os.Exit(exitCode)
	}
}

// openCache returns the configured cache backend. For sqlite it also returns
// the database holding the cache table, used for health stats.
func openCache(ctx context.Context, cfg config.Config, db *gorm.DB) (cache.Backend, *gorm.DB, func()) {
	switch cfg.Cache.Backend {
	case "redis":
		rb := cache.NewRedisBackend(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			DB:       cfg.Cache.RedisDB,
			Password: cfg.Cache.RedisPassword,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rb.Ping(pctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unreachable")
		}
		return rb, nil, func() { _ = rb.Close() }

	default:
		cacheDB := db
		if cfg.Cache.DBPath != "" && cfg.Cache.DBPath != cfg.DBPath {
			var err error
			if cacheDB, err = repo.OpenSQLite(cfg.Cache.DBPath); err != nil {
				log.Fatal().Err(err).Str("path", cfg.Cache.DBPath).Msg("open cache database failed")
			}
			if err := repo.AutoMigrate(cacheDB); err != nil {
				log.Fatal().Err(err).Msg("migrate cache database failed")
			}
		}
		return cache.NewGormBackend(cacheDB), cacheDB, func() {}
	}
}
