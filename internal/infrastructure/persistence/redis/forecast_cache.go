package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/pkg/circuitbreaker"
	"github.com/isuventra/attendance-hub/pkg/retry"
)

// Forecast cache keys.
const (
	keyForecastGeneration = PrefixForecast + "generation"
	keyForecastPayload    = PrefixForecast + "v"
)

// ForecastCache implements forecast.Cache. Payloads live under
// forecast:v{generation}; invalidation is an INCR of forecast:generation, so
// older payloads become unreachable and simply expire.
//
// With a breaker, reads and stores are skipped while Redis is failing.
// Invalidate always goes to Redis so that no payload outlives a write.
type ForecastCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewForecastCache creates a new ForecastCache. ttl bounds how long an
// unreachable payload lingers.
func NewForecastCache(cache *Cache, ttl time.Duration) *ForecastCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ForecastCache{cache: cache, ttl: ttl}
}

// WithBreaker guards the cache with cb and returns c.
func (c *ForecastCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *ForecastCache {
	c.breaker = cb
	return c
}

func (c *ForecastCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}

// PayloadKey returns the key of the payload for generation.
func PayloadKey(generation int64) string {
	return keyForecastPayload + strconv.FormatInt(generation, 10)
}

// Generation implements forecast.Cache.
func (c *ForecastCache) Generation(ctx context.Context) (int64, error) {
	var gen int64
	err := c.guard(ctx, func(ctx context.Context) error {
		var err error
		gen, err = c.cache.GetInt64(ctx, keyForecastGeneration)
		return err
	})
	return gen, retryable(err)
}

// Load implements forecast.Cache.
func (c *ForecastCache) Load(ctx context.Context, generation int64) (*forecast.Cached, error) {
	var v forecast.Cached
	hit := false
	err := c.guard(ctx, func(ctx context.Context) error {
		err := c.cache.Get(ctx, PayloadKey(generation), &v)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		hit = err == nil
		return err
	})
	if err != nil {
		return nil, retryable(err)
	}
	if !hit {
		return nil, nil
	}
	return &v, nil
}

// Store implements forecast.Cache.
func (c *ForecastCache) Store(ctx context.Context, generation int64, v *forecast.Cached) error {
	return retryable(c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, PayloadKey(generation), v, c.ttl)
	}))
}

// Invalidate implements forecast.Cache.
func (c *ForecastCache) Invalidate(ctx context.Context) (int64, error) {
	gen, err := c.cache.Incr(ctx, keyForecastGeneration)
	return gen, retryable(err)
}

// retryable marks network errors for pkg/retry. Serialization errors are
// not worth retrying.
func retryable(err error) error {
	if err == nil || errors.Is(err, ErrCacheSerialization) || circuitbreaker.IsRejected(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return retry.Retryable(err)
}
