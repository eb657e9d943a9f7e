// Package bootstrap opens the storage backends selected by config and hands
// the commands a single Backend to wire from.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/isuventra/attendance-hub/config"
	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/seed"
	"github.com/isuventra/attendance-hub/internal/interface/http/handlers"
	"github.com/isuventra/attendance-hub/pkg/circuitbreaker"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/password"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

// Backend is the set of repositories behind one storage driver.
type Backend struct {
	Driver string

	Events    attendance.EventCatalog
	Students  attendance.StudentDirectory
	Store     attendance.Store
	Admins    attendance.AdminDirectory
	Audit     attendance.AuditRepository
	Snapshots forecast.SnapshotSource
	Stats     attendance.StatsReader

	// Cache is nil when forecast caching is disabled.
	Cache forecast.Cache

	// Seed writes the demo dataset into this backend.
	Seed seed.Target

	// Checks are the dependency pings exposed on /health.
	Checks map[string]handlers.Pinger

	closers []func()
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Options carries the collaborators Open needs besides config.
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Manager
	Clock   timeutil.Clock

	// SkipMigrations overrides database.auto_migrate.
	SkipMigrations bool
}

// Open connects the configured storage driver and forecast cache.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	log := opts.Logger.With(logger.Component("bootstrap"))

	b := &Backend{Driver: cfg.Storage.Driver, Checks: make(map[string]handlers.Pinger)}

	var err error
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		err = b.openPostgres(ctx, cfg, opts, log)
	case config.StorageMemory:
		b.openMemory()
		log.Warn("using in-memory storage; data is lost on exit")
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		b.Close()
		return nil, err
	}

	if err := b.openCache(ctx, cfg, opts, log); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, cfg *config.Config, opts Options, log *logger.Logger) error {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to postgres...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, conn.Close)
	b.Checks["postgres"] = conn

	if cfg.Database.AutoMigrate && !opts.SkipMigrations {
		log.Info("applying migrations...")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	dir := postgres.NewDirectory(conn)
	admins := postgres.NewAdminDirectory(conn, password.DefaultCost)
	analytics := postgres.NewAnalytics(conn)

	b.Events = dir
	b.Students = dir
	b.Store = postgres.NewParticipationStore(conn, postgres.ParticipationStoreConfig{
		LockTimeout: cfg.Database.QueryTimeout,
		Metrics:     opts.Metrics,
	})
	b.Admins = admins
	b.Audit = postgres.NewAuditRepository(conn)
	b.Snapshots = analytics
	b.Stats = analytics
	b.Seed = seed.PostgresTarget(dir, admins)
	return nil
}

func (b *Backend) openMemory() {
	dir := memory.NewDirectory()
	admins := memory.NewAdminDirectory(password.DefaultCost)
	store := memory.NewParticipationStore()
	analytics := memory.NewAnalytics(dir, store)

	b.Events = dir
	b.Students = dir
	b.Store = store
	b.Admins = admins
	b.Audit = memory.NewAuditRepository()
	b.Snapshots = analytics
	b.Stats = analytics
	b.Seed = seed.MemoryTarget(dir, admins)
}

func (b *Backend) openCache(ctx context.Context, cfg *config.Config, opts Options, log *logger.Logger) error {
	if !cfg.Forecast.CacheEnabled {
		log.Info("forecast cache disabled")
		return nil
	}
	if cfg.Redis.Disabled {
		b.Cache = memory.NewForecastCache(cfg.Forecast.CacheTTL, opts.Clock)
		log.Info("forecast cache in process memory", logger.Duration("ttl", cfg.Forecast.CacheTTL))
		return nil
	}

	log.Info("connecting to redis...")
	cache, err := redis.NewCache(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() { _ = cache.Close() })
	b.Checks["redis"] = cache
	breaker := circuitbreaker.CacheBreaker("forecast-cache", func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	b.Cache = forecast.NewConsistentCache(
		redis.NewForecastCache(cache, cfg.Forecast.CacheTTL).WithBreaker(breaker),
	)
	log.Info("forecast cache in redis", logger.Duration("ttl", cfg.Forecast.CacheTTL))
	return nil
}
