package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE AUDIT JOB
// ══════════════════════════════════════════════════════════════════════════════

// PruneAuditJob deletes audit entries older than the retention window.
type PruneAuditJob struct {
	repo      attendance.AuditRepository
	clock     timeutil.Clock
	retention time.Duration

	pruned atomic.Int64
}

// NewPruneAuditJob creates the job. A nil clock uses the system clock.
func NewPruneAuditJob(repo attendance.AuditRepository, retention time.Duration, clock timeutil.Clock) *PruneAuditJob {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &PruneAuditJob{repo: repo, clock: clock, retention: retention}
}

func (j *PruneAuditJob) Name() string { return "prune_audit" }

func (j *PruneAuditJob) Description() string {
	return fmt.Sprintf("Deletes audit log entries older than %s", j.retention)
}

// Run implements scheduler.Job.
func (j *PruneAuditJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	cutoff := j.clock.Now().Add(-j.retention)

	n, err := j.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit logs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.pruned.Add(n)

	logger.FromContext(ctx).Info("audit logs pruned",
		logger.Int64("deleted", n),
		logger.Time("cutoff", cutoff),
	)
	return nil
}

// TotalPruned returns the number of entries deleted since start.
func (j *PruneAuditJob) TotalPruned() int64 { return j.pruned.Load() }
