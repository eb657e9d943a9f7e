package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Cached is a stored forecast payload together with the cache generation it
// was computed under.
type Cached struct {
	Results     map[string]Result `json:"events"`
	GeneratedAt time.Time         `json:"generated_at"`
	Skipped     int               `json:"skipped"`
}

// Cache stores computed forecasts keyed by generation. Every participation
// commit bumps the generation, so a payload stored under an older generation
// is never returned to a reader that observed the commit.
type Cache interface {
	// Generation returns the current generation.
	Generation(ctx context.Context) (int64, error)

	// Load returns nil, nil on a miss.
	Load(ctx context.Context, generation int64) (*Cached, error)

	// Store saves c under generation.
	Store(ctx context.Context, generation int64, c *Cached) error

	// Invalidate advances the generation and returns the new value.
	Invalidate(ctx context.Context) (int64, error)
}

// ErrCacheStale is returned by ConsistentCache.Generation while a failed
// invalidation has not been repeated successfully.
var ErrCacheStale = errors.New("forecast cache is stale")

// ConsistentCache wraps a Cache and tracks failed invalidations. After an
// Invalidate error every Generation call reports ErrCacheStale, so readers
// compute from a fresh snapshot instead of serving a payload older than the
// commit. Generation retries the invalidation at most once per retryEvery and
// clears the stale mark on success.
type ConsistentCache struct {
	inner      Cache
	retryEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	stale     bool
	lastRetry time.Time
}

// NewConsistentCache wraps inner.
func NewConsistentCache(inner Cache) *ConsistentCache {
	return &ConsistentCache{inner: inner, retryEvery: time.Second, now: time.Now}
}

// Stale reports whether an invalidation is pending.
func (c *ConsistentCache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Generation implements Cache.
func (c *ConsistentCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if !c.stale {
		c.mu.Unlock()
		return c.inner.Generation(ctx)
	}
	now := c.now()
	if now.Sub(c.lastRetry) < c.retryEvery {
		c.mu.Unlock()
		return 0, ErrCacheStale
	}
	c.lastRetry = now
	c.mu.Unlock()

	if _, err := c.Invalidate(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheStale, err)
	}
	return c.inner.Generation(ctx)
}

// Load implements Cache.
func (c *ConsistentCache) Load(ctx context.Context, generation int64) (*Cached, error) {
	return c.inner.Load(ctx, generation)
}

// Store implements Cache. Nothing is stored while stale.
func (c *ConsistentCache) Store(ctx context.Context, generation int64, v *Cached) error {
	if c.Stale() {
		return nil
	}
	return c.inner.Store(ctx, generation, v)
}

// Invalidate implements Cache.
func (c *ConsistentCache) Invalidate(ctx context.Context) (int64, error) {
	gen, err := c.inner.Invalidate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stale = true
		return 0, err
	}
	c.stale = false
	return gen, nil
}
