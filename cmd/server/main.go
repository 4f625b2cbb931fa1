// Package main is the entrypoint for the weather analysis API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/analysis"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/handler"
	mw "github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/middleware"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/blob"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/cache"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/config"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dispatch"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/engine"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"strategies", cfg.Analysis.Strategies,
		"workers", cfg.Analysis.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create blob store (ensures the upload bucket exists)
	blobStore, err := blob.NewMinioStore(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("create blob store: %w", err)
	}
	slog.Info("blob store ready", "bucket", cfg.Blob.Bucket)

	// 6. Create the analysis pipeline
	analyzer, err := analysis.NewEngine(cfg.Analysis.Strategies, cfg.Analysis.ClusterCount)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	computeEngine := engine.New(int64(cfg.Analysis.Workers), cfg.Analysis.TaskRetention)
	defer computeEngine.Close()

	// 7. Create store, dispatcher, resolver
	pgStore := store.NewPostgresStore(pool)
	dispatcher := dispatch.NewDispatcher(pgStore, redisCache, blobStore, computeEngine,
		analyzer, cfg.Analysis.ResultTTL)
	resolver := dispatch.NewResolver(pgStore, redisCache, blobStore, computeEngine,
		cfg.Analysis.StatusWaitMax)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:    healthHandler(pgStore, redisCache, blobStore),
		UploadHandler:    handler.NewUploadHandler(dispatcher, cfg.Analysis.MaxUploadBytes),
		StatusHandler:    handler.NewStatusHandler(resolver, cfg.Analysis.StatusWaitMax),
		ListJobsHandler:  handler.NewListJobsHandler(resolver),
		DeleteJobHandler: handler.NewDeleteJobHandler(resolver),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Analysis.StatusWaitMax + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database, cache and blob connectivity.
func healthHandler(s store.Store, c cache.Cache, b blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"blob":     "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := b.Ping(r.Context()); err != nil {
			checks["blob"] = "degraded"
		}

		for _, state := range checks {
			if state != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
