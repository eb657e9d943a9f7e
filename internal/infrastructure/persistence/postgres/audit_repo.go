package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
)

// AuditRepository implements attendance.AuditRepository.
type AuditRepository struct {
	conn *Connection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(conn *Connection) *AuditRepository {
	return &AuditRepository{conn: conn}
}

// Append implements attendance.AuditRepository. Transient failures are marked
// retryable for the caller's retrier.
func (r *AuditRepository) Append(ctx context.Context, entry *attendance.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := r.conn.QueryRow(ctx, `
		INSERT INTO audit_logs (action, activitylog, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, entry.Action, entry.Description, entry.ActorID, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return markTransient(fmt.Errorf("append audit log: %w", err))
	}
	return nil
}

// PruneBefore implements attendance.AuditRepository.
func (r *AuditRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
