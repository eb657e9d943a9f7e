package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("datetime layout uses location", func(t *testing.T) {
		got, err := ParseTimestamp("2024-03-01 08:30:00", ManilaTZ)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, ManilaTZ), got)
		assert.Equal(t, 0, got.UTC().Hour())
	})

	t.Run("rfc3339 keeps offset", func(t *testing.T) {
		got, err := ParseTimestamp("2024-03-01T08:30:00Z", ManilaTZ)
		require.NoError(t, err)
		assert.Equal(t, 8, got.UTC().Hour())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseTimestamp("yesterday", ManilaTZ)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseTimestamp("  ", nil)
		assert.Error(t, err)
	})
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, ManilaTZ)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, ManilaTZ, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}
