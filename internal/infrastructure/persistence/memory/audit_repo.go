package memory

import (
	"context"
	"sync"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
)

// AuditRepository implements attendance.AuditRepository.
type AuditRepository struct {
	mu      sync.Mutex
	entries []attendance.AuditLog
	nextID  int64
}

// NewAuditRepository creates an empty repository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Append implements attendance.AuditRepository.
func (r *AuditRepository) Append(ctx context.Context, entry *attendance.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

// PruneBefore implements attendance.AuditRepository.
func (r *AuditRepository) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	var removed int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

// Entries returns a copy of the stored entries in insertion order.
func (r *AuditRepository) Entries() []attendance.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]attendance.AuditLog(nil), r.entries...)
}
