package memory

import (
	"context"
	"sync"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

// ForecastCache implements forecast.Cache in process. Only the payload of the
// current generation is retained.
type ForecastCache struct {
	mu         sync.Mutex
	generation int64
	entryGen   int64
	entry      *forecast.Cached
	storedAt   time.Time
	ttl        time.Duration
	clock      timeutil.Clock
}

// NewForecastCache creates a cache whose entries expire after ttl. A zero ttl
// keeps entries until the generation changes.
func NewForecastCache(ttl time.Duration, clock timeutil.Clock) *ForecastCache {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ForecastCache{ttl: ttl, clock: clock}
}

// Generation implements forecast.Cache.
func (c *ForecastCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

// Load implements forecast.Cache.
func (c *ForecastCache) Load(_ context.Context, generation int64) (*forecast.Cached, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.entryGen != generation || c.generation != generation {
		return nil, nil
	}
	if c.ttl > 0 && c.clock.Now().Sub(c.storedAt) >= c.ttl {
		c.entry = nil
		return nil, nil
	}
	return c.entry, nil
}

// Store implements forecast.Cache. A payload for a stale generation is dropped.
func (c *ForecastCache) Store(_ context.Context, generation int64, v *forecast.Cached) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return nil
	}
	c.entry = v
	c.entryGen = generation
	c.storedAt = c.clock.Now()
	return nil
}

// Invalidate implements forecast.Cache.
func (c *ForecastCache) Invalidate(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entry = nil
	return c.generation, nil
}
