package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"adledger/internal/adapter/adsource"
	httpadapter "adledger/internal/adapter/http"
	"adledger/internal/adapter/postgres"
	"adledger/internal/adapter/usecase"
	"adledger/internal/config"
	"adledger/internal/core/matcher"
	"adledger/internal/core/normalizer"
	"adledger/internal/core/port"
	"adledger/internal/db"
)

// main is the entry point of the reconciliation service. It loads
// configuration, optionally runs database migrations and seeds the plan
// catalog, wires the repositories into the reconciliation engine,
// optionally starts the interval scheduler for pull-based passes and
// starts the HTTP server that hosts the run trigger, the spend-sync hook
// and the ledger query endpoints. On receiving a termination signal it
// gracefully shuts down the server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	// Optionally run migrations if configured. We use the Psql sub-config.
	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Recon.SeedPlans {
		if err = db.SeedPlans(ctx, pool); err != nil {
			logger.Error("seed plans error", slog.Any("error", err))
		} else {
			logger.Info("plan catalog seeded")
		}
	}

	catalog := postgres.NewPlanRepository(pool)
	store := postgres.NewReconciliationStore(pool)

	// Snapshots are pushed through the run endpoint; a pull source is
	// wired only when a snapshot endpoint is configured.
	var source port.SnapshotSource
	if cfg.Recon.SourceURL != "" {
		source = adsource.New(cfg.Recon.SourceURL)
	}

	svc := usecase.NewReconciler(
		store,
		catalog,
		source,
		normalizer.New(normalizer.Config{DefaultDurationDays: cfg.Recon.DefaultDurationDays}),
		matcher.New(matcher.Config{
			ExactBudgetTolerance:     decimal.NewFromFloat(cfg.Recon.ExactBudgetTolerance),
			NearestBudgetTolerance:   decimal.NewFromFloat(cfg.Recon.NearestBudgetTolerance),
			NearestDurationTolerance: cfg.Recon.NearestDurationTolerance,
		}),
		logger,
		usecase.Config{Currency: cfg.Recon.Currency, Accounts: cfg.Recon.Accounts},
	)

	if cfg.Recon.RunInterval > 0 && source != nil && len(cfg.Recon.Accounts) > 0 {
		logger.Info("scheduled reconciliation enabled",
			slog.Duration("interval", cfg.Recon.RunInterval),
			slog.Int("accounts", len(cfg.Recon.Accounts)))
		go svc.RunEvery(ctx, cfg.Recon.RunInterval)
	}

	handler := httpadapter.NewHandler(svc, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
