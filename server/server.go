// Package server wires the backends, the service and the HTTP surface
// together and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go-link-redirector/cache"
	"go-link-redirector/config"
	"go-link-redirector/handlers"
	"go-link-redirector/metrics"
	"go-link-redirector/ratelimit"
	"go-link-redirector/services"
	"go-link-redirector/shortcode"
	"go-link-redirector/storage"
	"go.uber.org/zap"
)

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func Run(logger *zap.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, logger, cfg)
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	deps, err := setupComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	router, err := setupRouter(deps.handler, cfg, logger, deps.metrics)
	if err != nil {
		return err
	}
	srv := setupServer(cfg, router)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- startServer(srv, logger)
	}()

	return waitForShutdown(ctx, srv, cfg, serveErr, logger)
}

// components owns every backend so they can be closed in one place.
type components struct {
	store   storage.Storage
	cache   cache.Cache
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	handler handlers.URLHandlerInterface
}

func setupComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	deps := &components{metrics: metrics.New()}

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open link store: %w", err)
	}
	deps.store = store

	redirectCache, err := cache.New(ctx, cfg)
	if err != nil {
		deps.close(logger)
		return nil, fmt.Errorf("failed to open redirect cache: %w", err)
	}
	deps.cache = redirectCache

	var guard *ratelimit.Guard
	if !cfg.DisableRateLimit {
		limiter, err := ratelimit.New(ctx, cfg)
		if err != nil {
			deps.close(logger)
			return nil, fmt.Errorf("failed to open rate limiter: %w", err)
		}
		deps.limiter = limiter
		guard = ratelimit.NewGuard(limiter, ratelimit.Policies(cfg), logger, deps.metrics)
	}

	linkService := services.NewLinkService(
		store,
		redirectCache,
		shortcode.NewGenerator(cfg.ShortCodeBytes),
		cfg.CacheTTL,
		logger,
		deps.metrics,
	)

	handlerCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	handler, err := handlers.NewURLHandler(handlerCtx, linkService, guard, cfg, logger)
	if err != nil {
		logger.Error("Failed to create URL handler", zap.Error(err))
		deps.close(logger)
		return nil, err
	}
	deps.handler = handler

	logger.Info("Components ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("cache", cfg.CacheBackend),
		zap.String("rate_limit", rateLimitBackend(cfg)))
	return deps, nil
}

func rateLimitBackend(cfg *config.Config) string {
	if cfg.DisableRateLimit {
		return "disabled"
	}
	return cfg.RateLimitBackend
}

func (d *components) close(logger *zap.Logger) {
	if d.limiter != nil {
		if err := d.limiter.Close(); err != nil {
			logger.Warn("Failed to close rate limiter", zap.Error(err))
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			logger.Warn("Failed to close redirect cache", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logger.Warn("Failed to close link store", zap.Error(err))
		}
	}
}

func setupRouter(handler handlers.URLHandlerInterface, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	handlers.RegisterRoutes(router, handler, cfg, logger, m)
	return router, nil
}

func setupServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}
}

func startServer(srv *http.Server, logger *zap.Logger) error {
	logger.Info("Starting server", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Debug("Server stopped")
	return nil
}

// waitForShutdown blocks until ctx is cancelled or the server fails to serve.
func waitForShutdown(ctx context.Context, srv *http.Server, cfg *config.Config, serveErr <-chan error, logger *zap.Logger) error {
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal. Initiating server shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
