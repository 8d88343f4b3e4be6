// Package main is the background worker of the Yogaii streak service.
//
// The worker runs periodic jobs:
//   - refresh_weekly_progress recomputes every profile's weekly progress
//   - reconcile_profiles rebuilds profiles from their activity history
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/bootstrap"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/scheduler"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/scheduler/jobs"
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

	log := bootstrap.NewLogger(cfg.Observability).With(logger.Component("worker"))
	defer func() { _ = log.Sync() }()

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORES & HANDLERS
	// The worker publishes events but does not consume them.
	// ─────────────────────────────────────────────────────────────────────────
	container, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{Migrate: cfg.Database.AutoMigrate})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("close failed", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.Streak.Location
	schedCfg.Recorder = container.Metrics
	if cfg.Scheduler.JobTimeout > 0 {
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	sched := scheduler.NewScheduler(schedCfg)

	if err := registerJobs(sched, container, cfg, log); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	for _, info := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.String("job", info.Name),
			logger.String("schedule", info.Schedule),
			logger.Time("next_run", info.NextRun),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. METRICS ENDPOINT (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var metricsSrv *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("GET "+cfg.Observability.MetricsPath, container.Metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.HTTP.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", logger.Err(err))
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := sched.Stop(); err != nil {
		log.Warn("stop scheduler", logger.Err(err))
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	log.Info("shutdown completed")
	return nil
}

func registerJobs(sched *scheduler.Scheduler, c *bootstrap.Container, cfg *config.Config, log *logger.Logger) error {
	weekly, err := scheduler.ParseSchedule(cfg.Scheduler.WeeklyProgressSchedule, cfg.Streak.Location)
	if err != nil {
		return fmt.Errorf("weekly progress schedule: %w", err)
	}
	if err := sched.Register(jobs.NewRefreshWeeklyProgressJob(c.RefreshWeeklyProgress, log), weekly); err != nil {
		return err
	}

	if !cfg.Scheduler.ReconcileEnabled {
		return nil
	}
	reconcile, err := scheduler.ParseSchedule(cfg.Scheduler.ReconcileSchedule, cfg.Streak.Location)
	if err != nil {
		return fmt.Errorf("reconcile schedule: %w", err)
	}
	return sched.Register(jobs.NewReconcileProfilesJob(c.ReconcileProfile, c.Profiles, cfg.Scheduler.ReconcileDryRun, log), reconcile)
}
