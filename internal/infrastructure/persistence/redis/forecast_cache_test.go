package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isuventra/attendance-hub/pkg/circuitbreaker"
	"github.com/isuventra/attendance-hub/pkg/retry"
)

func TestPayloadKey(t *testing.T) {
	assert.Equal(t, "forecast:v0", PayloadKey(0))
	assert.Equal(t, "forecast:v42", PayloadKey(42))
}

func TestRetryable(t *testing.T) {
	assert.NoError(t, retryable(nil))
	assert.True(t, retry.IsRetryable(retryable(errors.New("i/o timeout"))))
	assert.False(t, retry.IsRetryable(retryable(ErrCacheSerialization)))
	assert.False(t, retry.IsRetryable(retryable(context.Canceled)))
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	cfg.URL = "redis://:secret@cache:6380/2"
	cfg.PoolSize = 5
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 5, opts.PoolSize)

	cfg.URL = "http://nope"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestNewForecastCache_DefaultTTL(t *testing.T) {
	c := NewForecastCache(nil, 0)
	assert.Equal(t, 10*time.Minute, c.ttl)
}

func unreachableCache(t *testing.T) *Cache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client)
}

func TestForecastCache_BreakerSkipsReadsButNotInvalidate(t *testing.T) {
	cb := circuitbreaker.CacheBreaker("forecast-cache", nil)
	c := NewForecastCache(unreachableCache(t), time.Minute).WithBreaker(cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Generation(ctx)
		require.Error(t, err)
		assert.False(t, circuitbreaker.IsRejected(err))
	}
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	_, err := c.Generation(ctx)
	assert.True(t, circuitbreaker.IsRejected(err))
	assert.False(t, retry.IsRetryable(err))

	_, err = c.Load(ctx, 1)
	assert.True(t, circuitbreaker.IsRejected(err))
	assert.True(t, circuitbreaker.IsRejected(c.Store(ctx, 1, nil)))

	_, err = c.Invalidate(ctx)
	require.Error(t, err)
	assert.False(t, circuitbreaker.IsRejected(err), "invalidation always reaches redis")
}
