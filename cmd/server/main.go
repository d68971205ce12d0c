// Package main is the entrypoint for the salesboard API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/salesboard/internal/analytics"
	"github.com/kiranshivaraju/salesboard/internal/api"
	"github.com/kiranshivaraju/salesboard/internal/api/handler"
	mw "github.com/kiranshivaraju/salesboard/internal/api/middleware"
	"github.com/kiranshivaraju/salesboard/internal/cache"
	"github.com/kiranshivaraju/salesboard/internal/config"
	"github.com/kiranshivaraju/salesboard/internal/ingest"
	"github.com/kiranshivaraju/salesboard/internal/jobs"
	"github.com/kiranshivaraju/salesboard/internal/metrics"
	"github.com/kiranshivaraju/salesboard/internal/sales"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/internal/tenant"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "driver", cfg.Database.Driver, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := cache.New(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		defer closer.Close()
	}
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	if cfg.Redis.URL == "" {
		slog.Warn("REDIS_URL not set; summary caching and rate limiting disabled")
	} else {
		slog.Info("redis connected")
	}

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = metrics.New()
	}

	aliases, err := ingest.LoadAliases(cfg.Upload.AliasesFile)
	if err != nil {
		return fmt.Errorf("load aliases: %w", err)
	}

	app := newApp(cfg, st, c, m, aliases)

	if cfg.Seed.OnStartup {
		res, err := app.seeder.SeedFile(ctx, cfg.Seed.File)
		if err != nil {
			return fmt.Errorf("seed %s: %w", cfg.Seed.File, err)
		}
		slog.Info("default dataset seeded", "file", cfg.Seed.File, "imported", res.Imported)
	}

	if cfg.Reconcile.Schedule != "" {
		sched, err := jobs.NewReconciler(st, m).Schedule(cfg.Reconcile.Schedule)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// app is the wired service graph behind the HTTP router.
type app struct {
	router http.Handler
	seeder *ingest.Seeder
}

func newApp(cfg *config.Config, st store.Store, c cache.Cache, m *metrics.Metrics, aliases *ingest.AliasTable) *app {
	summaries := analytics.NewService(st, c, cfg.Redis.SummaryTTL, m)
	pipeline := ingest.NewPipeline(st, aliases,
		ingest.WithInvalidator(summaries),
		ingest.WithMetrics(m),
	)
	salesSvc := sales.NewService(st, summaries)
	tenants := tenant.NewService(st, summaries)

	router := api.NewRouter(api.Dependencies{
		RateLimit: mw.NewRateLimit(c, cfg.Server.RateLimitPerMin),
		Metrics:   m,

		HealthHandler:        handler.NewHealthHandler(st, c),
		UploadHandler:        handler.NewUploadHandler(pipeline, cfg.Upload.MaxBytes),
		ListCompaniesHandler: handler.NewListCompaniesHandler(tenants),
		DeleteCompanyHandler: handler.NewDeleteCompanyHandler(tenants),
		ListSalesHandler:     handler.NewListSalesHandler(salesSvc),
		CreateSaleHandler:    handler.NewCreateSaleHandler(salesSvc),
		GetSaleHandler:       handler.NewGetSaleHandler(salesSvc),
		UpdateSaleHandler:    handler.NewUpdateSaleHandler(salesSvc),
		DeleteSaleHandler:    handler.NewDeleteSaleHandler(salesSvc),
		SummaryHandler:       handler.NewSummaryHandler(summaries),
	})

	return &app{
		router: router,
		seeder: ingest.NewSeeder(st, aliases,
			ingest.WithInvalidator(summaries),
			ingest.WithMetrics(m),
		),
	}
}
