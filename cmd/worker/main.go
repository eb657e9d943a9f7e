// Package main is the entry point of the attendance hub background worker.
//
// The worker runs the periodic jobs:
//   - warm_forecast recomputes the forecast into the shared cache
//   - prune_audit deletes audit entries older than the retention window
//
// It needs the postgres driver and Redis to be useful: with the memory
// driver or the in-process cache it only touches its own copy of the data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isuventra/attendance-hub/config"
	"github.com/isuventra/attendance-hub/internal/bootstrap"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
)

func main() {
	runOnce := flag.String("run", "", "run the named job once and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if err := run(ctx, *runOnce); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runOnce string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGER AND METRICS
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.Component("worker"),
	)
	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.Observability.MetricsEnabled))

	if !cfg.Scheduler.Enabled && runOnce == "" {
		log.Warn("scheduler disabled; nothing to do")
		return nil
	}
	if cfg.Storage.Driver == config.StorageMemory || cfg.Redis.Disabled {
		log.Warn("worker is not sharing state with the server",
			logger.String("storage", cfg.Storage.Driver),
			logger.Bool("redis_disabled", cfg.Redis.Disabled),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE AND APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	bopts := bootstrap.Options{Logger: log, Metrics: m, SkipMigrations: true}
	backend, err := bootstrap.Open(ctx, cfg, bopts)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	app, err := bootstrap.NewApp(cfg, backend, bopts)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer func() { _ = app.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := bootstrap.NewScheduler(cfg, backend, app, bopts)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	for _, j := range sched.ListJobs() {
		log.Info("job registered",
			logger.String("job", j.Name),
			logger.String("schedule", j.Schedule),
			logger.Time("next_run", j.NextRun),
		)
	}

	if runOnce != "" {
		res, err := sched.RunNow(ctx, runOnce)
		if err != nil {
			return err
		}
		log.Info("job finished", logger.String("job", res.JobName), logger.Latency(res.Duration))
		return nil
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	log.Info("worker is running", logger.String("timezone", cfg.App.Timezone))

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	stopped := make(chan struct{})
	go func() {
		_ = sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		log.Info("shutdown completed")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timed out; abandoning running jobs")
	}
	return nil
}
