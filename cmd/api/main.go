// Package main is the entry point of the Yogaii streak HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/bootstrap"
	httpserver "github.com/yogaii/yogaii-streak/internal/interface/http"
	"github.com/yogaii/yogaii-streak/internal/interface/http/handlers"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.NewLogger(cfg.Observability)
	defer func() { _ = log.Sync() }()

	log.Info("starting streak API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("driver", cfg.Database.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORES, EVENT BUS & HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	container, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{
		Migrate:       cfg.Database.AutoMigrate,
		EventHandlers: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		log.Info("closing dependencies")
		if err := container.Close(); err != nil {
			log.Error("close failed", logger.Err(err))
		}
	}()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	for name, check := range container.Checks {
		health.AddCheck(name, handlers.HealthCheckFunc(check))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	deps := httpserver.Dependencies{
		RecordActivity:      container.RecordActivity,
		UpdateWeeklyGoal:    container.UpdateWeeklyGoal,
		ReconcileProfile:    container.ReconcileProfile,
		GetStreak:           container.GetStreak,
		GetWeeklyActivities: container.GetWeeklyActivities,
		GetAchievements:     container.GetAchievements,
		GetDashboard:        container.GetDashboard,
		Logger:              log,
		HealthChecker:       health,
		Features:            cfg.Features,
		Metrics:             container.Metrics,
	}
	if cfg.Observability.MetricsEnabled {
		deps.MetricsHandler = container.Metrics.Handler()
	}

	server := httpserver.NewServer(httpserver.ConfigFrom(cfg), deps)
	errCh := server.StartAsync(ctx)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown completed")
	return nil
}
