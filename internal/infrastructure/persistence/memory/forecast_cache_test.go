package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

func TestForecastCache_Generations(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewFixedClock(t0)
	c := NewForecastCache(time.Minute, clock)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)

	payload := &forecast.Cached{Results: map[string]forecast.Result{}, GeneratedAt: t0}
	require.NoError(t, c.Store(ctx, gen, payload))

	got, err := c.Load(ctx, gen)
	require.NoError(t, err)
	assert.Same(t, payload, got)

	next, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	got, _ = c.Load(ctx, gen)
	assert.Nil(t, got)
	got, _ = c.Load(ctx, next)
	assert.Nil(t, got)

	// A computation that started before the bump must not be stored.
	require.NoError(t, c.Store(ctx, gen, payload))
	got, _ = c.Load(ctx, next)
	assert.Nil(t, got)
}

func TestForecastCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewFixedClock(t0)
	c := NewForecastCache(time.Minute, clock)

	require.NoError(t, c.Store(ctx, 0, &forecast.Cached{}))
	clock.Advance(59 * time.Second)
	got, _ := c.Load(ctx, 0)
	assert.NotNil(t, got)

	clock.Advance(time.Second)
	got, _ = c.Load(ctx, 0)
	assert.Nil(t, got)
}
