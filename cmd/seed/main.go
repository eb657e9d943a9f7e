// Package main loads the demo dataset into PostgreSQL.
//
// Usage:
//
//	ATTENDANCE_DATABASE__URL=postgres://... seed -password s3cret
//
// Re-running is safe: students, admins and events are upserted and pairs
// that already have participations are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/isuventra/attendance-hub/config"
	"github.com/isuventra/attendance-hub/internal/bootstrap"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/seed"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

func main() {
	defaults := seed.DefaultOptions()
	var (
		students   = flag.Int("students", defaults.Students, "number of students")
		title      = flag.String("title", defaults.EventTitle, "base title of the recurring event")
		years      = flag.String("years", "2022,2023,2024", "comma separated editions")
		attendance = flag.String("attendance", "25,36,48", "comma separated participants per edition")
		superEmail = flag.String("super-admin", defaults.SuperAdminEmail, "super admin email")
		manager    = flag.String("manager", defaults.ManagerEmail, "manager email, assigned to the newest edition")
		pass       = flag.String("password", "", "password for both admins (required)")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := defaults
	opts.Students = *students
	opts.EventTitle = *title
	opts.SuperAdminEmail = *superEmail
	opts.ManagerEmail = *manager
	opts.Password = *pass

	err := func() error {
		var err error
		if opts.Years, err = parseInts(*years); err != nil {
			return fmt.Errorf("-years: %w", err)
		}
		if opts.Attendance, err = parseInts(*attendance); err != nil {
			return fmt.Errorf("-attendance: %w", err)
		}
		if opts.Password == "" {
			return errors.New("-password is required")
		}
		return run(ctx, opts)
	}()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seed.Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		return errors.New("seed writes to postgres; set storage.driver to postgres")
	}
	opts.Location = cfg.App.Location

	lopts := logger.DefaultOptions()
	lopts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(lopts).With(logger.Component("seed"))

	// The seed never touches the forecast cache.
	cfg.Forecast.CacheEnabled = false

	backend, err := bootstrap.Open(ctx, cfg, bootstrap.Options{Logger: log})
	if err != nil {
		return err
	}
	defer backend.Close()

	res, err := seed.Load(ctx, backend.Seed, backend.Store, opts, log)
	if err != nil {
		return err
	}
	log.Info("seed completed",
		logger.Int("students", res.Students),
		logger.Int("events", len(res.Events)),
		logger.Int("participations", res.Participations),
		logger.Int64("super_admin_id", res.SuperAdmin.ID),
		logger.Int64("manager_id", res.Manager.ID),
	)
	return nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("empty list")
	}
	return out, nil
}
