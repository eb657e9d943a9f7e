package query

import (
	"context"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET FORECAST QUERY
// Runs the forecast engine over a fresh snapshot, optionally reusing the
// payload cached under the current generation.
// ══════════════════════════════════════════════════════════════════════════════

// ForecastReport is the analytics payload.
type ForecastReport struct {
	Events      map[string]forecast.Result `json:"events"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Cached      bool                       `json:"cached"`
}

// GetForecastHandler handles forecast requests.
type GetForecastHandler struct {
	source  forecast.SnapshotSource
	engine  *forecast.Engine
	cache   forecast.Cache
	clock   timeutil.Clock
	metrics *metrics.Manager
	log     *logger.Logger
}

// GetForecastConfig contains optional collaborators. A nil Cache disables
// caching.
type GetForecastConfig struct {
	Cache   forecast.Cache
	Clock   timeutil.Clock
	Metrics *metrics.Manager
	Logger  *logger.Logger
}

// NewGetForecastHandler creates a new GetForecastHandler.
func NewGetForecastHandler(source forecast.SnapshotSource, engine *forecast.Engine, config GetForecastConfig) *GetForecastHandler {
	if engine == nil {
		engine = forecast.NewEngine()
	}
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop()
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	return &GetForecastHandler{
		source:  source,
		engine:  engine,
		cache:   config.Cache,
		clock:   config.Clock,
		metrics: config.Metrics,
		log:     config.Logger.With(logger.Component("forecast")),
	}
}

// Handle returns the forecast for every base event name. Cache failures
// degrade to a direct computation.
func (h *GetForecastHandler) Handle(ctx context.Context) (*ForecastReport, error) {
	gen, cacheOK := h.generation(ctx)
	if cacheOK {
		cached, err := h.cache.Load(ctx, gen)
		switch {
		case err != nil:
			h.log.Warn("forecast cache load failed", logger.Err(err))
		case cached != nil:
			h.metrics.RecordCacheHit()
			return &ForecastReport{Events: nonNil(cached.Results), GeneratedAt: cached.GeneratedAt, Cached: true}, nil
		default:
			h.metrics.RecordCacheMiss()
		}
	}

	c, err := h.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if cacheOK {
		if err := h.cache.Store(ctx, gen, c); err != nil {
			h.log.Warn("forecast cache store failed", logger.Err(err), logger.Int64("generation", gen))
		}
	}
	return &ForecastReport{Events: c.Results, GeneratedAt: c.GeneratedAt}, nil
}

// Compute reads one snapshot and runs the engine over it, bypassing the cache.
func (h *GetForecastHandler) Compute(ctx context.Context) (*forecast.Cached, error) {
	started := time.Now()
	records, err := h.source.Snapshot(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetForecast", shared.ErrServiceUnavailable, "failed to load attendance snapshot", err)
	}

	report := h.engine.Analyze(records)
	h.metrics.ObserveForecast(time.Since(started), len(report.Results), report.Skipped)
	if report.Skipped > 0 {
		h.log.Debug("forecast skipped records", logger.Int("skipped", report.Skipped))
	}

	return &forecast.Cached{
		Results:     nonNil(report.Results),
		GeneratedAt: h.clock.Now(),
		Skipped:     report.Skipped,
	}, nil
}

// Warm computes and stores the payload for the current generation.
func (h *GetForecastHandler) Warm(ctx context.Context) error {
	gen, ok := h.generation(ctx)
	if !ok {
		return nil
	}
	c, err := h.Compute(ctx)
	if err != nil {
		return err
	}
	return h.cache.Store(ctx, gen, c)
}

// generation reads the current cache generation. The generation is read
// before the snapshot so a commit landing in between only bumps it and the
// stored payload is never served under the new one.
func (h *GetForecastHandler) generation(ctx context.Context) (int64, bool) {
	if h.cache == nil {
		return 0, false
	}
	gen, err := h.cache.Generation(ctx)
	if err != nil {
		h.log.Warn("forecast cache unavailable", logger.Err(err))
		return 0, false
	}
	return gen, true
}

func nonNil(m map[string]forecast.Result) map[string]forecast.Result {
	if m == nil {
		return map[string]forecast.Result{}
	}
	return m
}
