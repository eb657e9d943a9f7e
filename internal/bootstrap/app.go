package bootstrap

import (
	"github.com/isuventra/attendance-hub/config"
	"github.com/isuventra/attendance-hub/internal/application/command"
	"github.com/isuventra/attendance-hub/internal/application/eventhandler"
	"github.com/isuventra/attendance-hub/internal/application/query"
	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/internal/infrastructure/messaging"
	"github.com/isuventra/attendance-hub/internal/infrastructure/scheduler"
	"github.com/isuventra/attendance-hub/internal/infrastructure/scheduler/jobs"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
	"github.com/isuventra/attendance-hub/pkg/validation"
)

// App is the application layer wired over a Backend.
type App struct {
	Bus *messaging.InMemoryEventBus

	Recorder         *command.Recorder
	CheckStatus      *query.CheckStatusHandler
	GetParticipation *query.GetParticipationHandler
	GetForecast      *query.GetForecastHandler
	GetDashboard     *query.GetDashboardStatsHandler

	Validator *validation.Validator
}

// Close drains the event bus so pending audit writes finish.
func (a *App) Close() error {
	return a.Bus.Close()
}

// NewApp builds the event bus, its listeners, the recorder and the queries.
func NewApp(cfg *config.Config, b *Backend, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = opts.Logger
	busCfg.Metrics = opts.Metrics
	bus := messaging.NewInMemoryEventBus(busCfg)

	audit := eventhandler.NewAuditListener(b.Audit, eventhandler.AuditListenerConfig{
		Timeout: cfg.Database.QueryTimeout,
		Logger:  opts.Logger,
	})
	var invalidator *eventhandler.ForecastCacheInvalidator
	if b.Cache != nil {
		invalidator = eventhandler.NewForecastCacheInvalidator(b.Cache, opts.Logger)
	}
	if err := eventhandler.Register(bus, audit, invalidator); err != nil {
		_ = bus.Close()
		return nil, err
	}

	v := validation.New()
	engine := forecast.NewEngine(forecast.WithLocation(cfg.App.Location))

	return &App{
		Bus: bus,
		Recorder: command.NewRecorder(b.Events, b.Students, b.Store, bus, command.RecorderConfig{
			Clock:     opts.Clock,
			Metrics:   opts.Metrics,
			Logger:    opts.Logger,
			Validator: v,
		}),
		CheckStatus:      query.NewCheckStatusHandler(b.Events, b.Students, b.Store),
		GetParticipation: query.NewGetParticipationHandler(b.Store, b.Events, b.Students),
		GetForecast: query.NewGetForecastHandler(b.Snapshots, engine, query.GetForecastConfig{
			Cache:   b.Cache,
			Clock:   opts.Clock,
			Metrics: opts.Metrics,
			Logger:  opts.Logger,
		}),
		GetDashboard: query.NewGetDashboardStatsHandler(b.Stats),
		Validator:    v,
	}, nil
}

// NewScheduler registers the background jobs described by cfg.Scheduler.
func NewScheduler(cfg *config.Config, b *Backend, app *App, opts Options) (*scheduler.Scheduler, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}

	s := scheduler.New(scheduler.Config{
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		Location:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	if err := s.Register(
		jobs.NewWarmForecastJob(app.GetForecast),
		scheduler.Every(cfg.Scheduler.WarmForecastInterval),
	); err != nil {
		return nil, err
	}

	prune, err := scheduler.ParseSchedule(cfg.Scheduler.PruneAuditSchedule)
	if err != nil {
		return nil, err
	}
	if err := s.Register(
		jobs.NewPruneAuditJob(b.Audit, cfg.Scheduler.AuditRetention, opts.Clock),
		prune,
	); err != nil {
		return nil, err
	}
	return s, nil
}
