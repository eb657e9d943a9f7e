package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("@every 90s")
	require.NoError(t, err)
	assert.Equal(t, "@every 1m30s", s.String())

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(90*time.Second), s.Next(start))

	_, err = ParseSchedule("@every soon")
	assert.Error(t, err)
	_, err = ParseSchedule("@every -1m")
	assert.Error(t, err)

	s, err = ParseSchedule("30 3 * * *")
	require.NoError(t, err)
	assert.Equal(t, "30 3 * * *", s.String())
}

func TestCronSchedule_Next(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		expr string
		from time.Time
		want time.Time
	}{
		{"30 3 * * *", time.Date(2024, 3, 1, 10, 0, 0, 0, loc), time.Date(2024, 3, 2, 3, 30, 0, 0, loc)},
		{"30 3 * * *", time.Date(2024, 3, 1, 3, 29, 59, 0, loc), time.Date(2024, 3, 1, 3, 30, 0, 0, loc)},
		{"30 3 * * *", time.Date(2024, 3, 1, 3, 30, 0, 0, loc), time.Date(2024, 3, 2, 3, 30, 0, 0, loc)},
		{"*/15 * * * *", time.Date(2024, 3, 1, 10, 7, 0, 0, loc), time.Date(2024, 3, 1, 10, 15, 0, 0, loc)},
		{"0 0 * * 0", time.Date(2024, 3, 1, 12, 0, 0, 0, loc), time.Date(2024, 3, 3, 0, 0, 0, 0, loc)},
		{"0 9-17/4 * * 1-5", time.Date(2024, 3, 1, 14, 0, 0, 0, loc), time.Date(2024, 3, 1, 17, 0, 0, 0, loc)},
		{"0 12 1,15 * *", time.Date(2024, 3, 2, 0, 0, 0, 0, loc), time.Date(2024, 3, 15, 12, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.expr+"/"+tt.from.Format(time.RFC3339), func(t *testing.T) {
			cs, err := ParseCron(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cs.Next(tt.from))
		})
	}
}

func TestParseCron_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
		"* * * * 7",
	} {
		_, err := ParseCron(expr)
		assert.Error(t, err, expr)
	}

	assert.Panics(t, func() { MustParseCron("bad") })
}
