// Package main is the entry point of the attendance hub API server.
//
// The server records scan-in/scan-out and manual participations, answers
// status checks, and serves the forecast and dashboard analytics. With
// -embed-worker it also runs the background jobs of cmd/worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isuventra/attendance-hub/config"
	"github.com/isuventra/attendance-hub/internal/bootstrap"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/seed"
	"github.com/isuventra/attendance-hub/internal/infrastructure/scheduler"
	httpapi "github.com/isuventra/attendance-hub/internal/interface/http"
	"github.com/isuventra/attendance-hub/internal/interface/http/handlers"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/password"
)

func main() {
	var (
		hashPassword = flag.String("hash-password", "", "print the bcrypt hash of the given password and exit")
		embedWorker  = flag.Bool("embed-worker", false, "run the background jobs in this process")
		seedDemo     = flag.Bool("seed-demo", false, "load the demo dataset on start (memory driver only)")
	)
	flag.Parse()

	if *hashPassword != "" {
		h, err := password.Hash(*hashPassword, password.DefaultCost)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *embedWorker, *seedDemo); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, embedWorker, seedDemo bool) error {
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
		logger.String("env", string(cfg.App.Environment)),
	)

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.Observability.MetricsEnabled))

	log.Info("starting attendance hub server",
		logger.String("version", cfg.App.Version),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE AND CACHE
	// ─────────────────────────────────────────────────────────────────────────
	bopts := bootstrap.Options{Logger: log, Metrics: m}
	backend, err := bootstrap.Open(ctx, cfg, bopts)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		log.Info("closing storage...")
		backend.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.NewApp(cfg, backend, bopts)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer func() {
		log.Info("draining event bus...")
		_ = app.Close()
	}()

	if seedDemo {
		if backend.Driver != config.StorageMemory {
			return errors.New("-seed-demo requires storage.driver memory; use cmd/seed for postgres")
		}
		seedOpts := seed.DefaultOptions()
		seedOpts.Location = cfg.App.Location
		res, err := seed.Load(ctx, backend.Seed, backend.Store, seedOpts, log)
		if err != nil {
			return err
		}
		log.Warn("demo dataset loaded",
			logger.String("super_admin", res.SuperAdmin.Email),
			logger.String("manager", res.Manager.Email),
			logger.Int("participations", res.Participations),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. BACKGROUND JOBS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if embedWorker && cfg.Scheduler.Enabled {
		sched, err = bootstrap.NewScheduler(cfg, backend, app, bopts)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.SetTimeout(cfg.Database.QueryTimeout)
	for name, p := range backend.Checks {
		health.AddCheck(name, handlers.NewPingCheck(p))
	}

	srvCfg := httpapi.DefaultConfig()
	srvCfg.Addr = cfg.HTTP.Addr
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	srvCfg.RateLimitRPS = cfg.HTTP.RateLimitRPS
	srvCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	srvCfg.Version = cfg.App.Version
	srvCfg.MetricsPath = ""
	if cfg.Observability.MetricsEnabled {
		srvCfg.MetricsPath = cfg.Observability.MetricsPath
	}

	server := httpapi.NewServer(srvCfg, httpapi.Dependencies{
		Recorder:         app.Recorder,
		CheckStatus:      app.CheckStatus,
		GetParticipation: app.GetParticipation,
		GetForecast:      app.GetForecast,
		GetDashboard:     app.GetDashboard,
		Admins:           backend.Admins,
		HealthChecker:    health,
		Metrics:          m,
		Logger:           log,
		Validator:        app.Validator,
		Location:         cfg.App.Location,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}
	log.Info("shutdown completed", logger.Latency(time.Since(start)))
	return nil
}
