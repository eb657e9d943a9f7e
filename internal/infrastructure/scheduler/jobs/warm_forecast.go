// Package jobs contains the attendance hub's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/isuventra/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM FORECAST JOB
// ══════════════════════════════════════════════════════════════════════════════

// ForecastWarmer is satisfied by query.GetForecastHandler.
type ForecastWarmer interface {
	Warm(ctx context.Context) error
}

// WarmForecastJob recomputes the forecast payload for the current cache
// generation so the analytics endpoint rarely pays for a cold cache after a
// burst of scans.
type WarmForecastJob struct {
	warmer ForecastWarmer

	lastRun atomic.Value // time.Time
}

// NewWarmForecastJob creates the job.
func NewWarmForecastJob(warmer ForecastWarmer) *WarmForecastJob {
	return &WarmForecastJob{warmer: warmer}
}

func (j *WarmForecastJob) Name() string { return "warm_forecast" }

func (j *WarmForecastJob) Description() string {
	return "Recomputes the cached attendance forecast"
}

// Run implements scheduler.Job.
func (j *WarmForecastJob) Run(ctx context.Context) error {
	started := time.Now()
	if err := j.warmer.Warm(ctx); err != nil {
		return fmt.Errorf("warm forecast: %w", err)
	}
	j.lastRun.Store(started)
	logger.FromContext(ctx).Debug("forecast cache warmed", logger.Latency(time.Since(started)))
	return nil
}

// LastSuccess returns when the job last finished without error.
func (j *WarmForecastJob) LastSuccess() (time.Time, bool) {
	t, ok := j.lastRun.Load().(time.Time)
	return t, ok
}
