package eventhandler

import (
	"context"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/retry"
)

// ForecastCacheInvalidator bumps the forecast cache generation after every
// participation mutation. It must be subscribed inline so the bump happens
// before the mutating request returns.
type ForecastCacheInvalidator struct {
	cache   forecast.Cache
	retrier *retry.Retrier
	timeout time.Duration
	logger  *logger.Logger
}

// NewForecastCacheInvalidator creates a new ForecastCacheInvalidator.
func NewForecastCacheInvalidator(cache forecast.Cache, log *logger.Logger) *ForecastCacheInvalidator {
	if log == nil {
		log = logger.Default()
	}
	return &ForecastCacheInvalidator{
		cache:   cache,
		retrier: retry.CacheRetrier(),
		timeout: time.Second,
		logger:  log.With(logger.Component("forecast_cache_invalidator")),
	}
}

// Handle implements shared.EventHandler.
func (i *ForecastCacheInvalidator) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	var gen int64
	err := i.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		gen, err = i.cache.Invalidate(ctx)
		return err
	})
	if err != nil {
		return err
	}

	i.logger.Debug("forecast cache invalidated",
		logger.String("event_type", string(event.EventType())),
		logger.Int64("generation", gen),
	)
	return nil
}
