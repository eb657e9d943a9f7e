package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPATION STORE
// Each WithKeyLock call is one READ COMMITTED transaction that first takes
// pg_advisory_xact_lock on the (student, event) pair. The lock is released
// by COMMIT or ROLLBACK, so it never outlives the transaction.
// ══════════════════════════════════════════════════════════════════════════════

const participationColumns = `id, student_id, event_id, time_in, time_out, created_at, updated_at`

// ParticipationStore implements attendance.Store.
type ParticipationStore struct {
	conn        *Connection
	retrier     *retry.Retrier
	lockTimeout time.Duration
}

// ParticipationStoreConfig configures ParticipationStore.
type ParticipationStoreConfig struct {
	// LockTimeout bounds the wait for the key lock. Zero waits until ctx is done.
	LockTimeout time.Duration

	// Metrics counts transaction retries.
	Metrics *metrics.Manager
}

// NewParticipationStore creates a new ParticipationStore.
func NewParticipationStore(conn *Connection, config ParticipationStoreConfig) *ParticipationStore {
	if config.Metrics == nil {
		config.Metrics = metrics.Nop()
	}
	m := config.Metrics
	return &ParticipationStore{
		conn: conn,
		retrier: retry.DatabaseRetrier().With(retry.WithOnRetry(func(int, error, time.Duration) {
			m.RecordTxRetry()
		})),
		lockTimeout: config.LockTimeout,
	}
}

// lockKeys folds the two ids into the int4 pair pg_advisory_xact_lock takes.
// Distinct pairs may share a lock; that only serializes them.
func lockKeys(key attendance.Key) (int32, int32) {
	fold := func(v int64) int32 {
		u := uint64(v)
		return int32(uint32(u) ^ uint32(u>>32))
	}
	return fold(key.StudentID), fold(key.EventID)
}

// WithKeyLock implements attendance.Store. Serialization failures, deadlocks
// and lock timeouts restart the whole transaction, callback included.
func (s *ParticipationStore) WithKeyLock(ctx context.Context, key attendance.Key, fn func(tx attendance.Tx) error) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return markTransient(s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if s.lockTimeout > 0 {
				timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
				if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
					return fmt.Errorf("set lock_timeout: %w", err)
				}
			}

			a, b := lockKeys(key)
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, a, b); err != nil {
				return fmt.Errorf("acquire key lock: %w", err)
			}
			return fn(&pgTx{tx: tx})
		}))
	})
	return translate("WithKeyLock", err)
}

// GetByID implements attendance.Store.
func (s *ParticipationStore) GetByID(ctx context.Context, id int64) (*attendance.Participation, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+participationColumns+` FROM participations WHERE id = $1`, id)
	p, err := scanParticipation(row)
	if IsNoRows(err) {
		return nil, shared.ErrParticipationNotFound
	}
	if err != nil {
		return nil, translate("GetByID", err)
	}
	return p, nil
}

// FindByKey implements attendance.Store.
func (s *ParticipationStore) FindByKey(ctx context.Context, key attendance.Key) ([]*attendance.Participation, error) {
	return findByKey(ctx, s.conn, key)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction
// ─────────────────────────────────────────────────────────────────────────────

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindByKey(ctx context.Context, key attendance.Key) ([]*attendance.Participation, error) {
	return findByKey(ctx, t.tx, key)
}

func (t *pgTx) Insert(ctx context.Context, p *attendance.Participation) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO participations (student_id, event_id, time_in, time_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.StudentID, p.EventID, p.TimeIn, p.TimeOut, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err == nil {
		return nil
	}

	if IsUniqueViolation(err) {
		return shared.ErrDuplicateOpenSession
	}
	var pgErr *pgconn.PgError
	if IsForeignKeyViolation(err) && errors.As(err, &pgErr) {
		if strings.Contains(pgErr.ConstraintName, "student") {
			return shared.ErrStudentNotFound
		}
		return shared.ErrEventNotFound
	}
	return fmt.Errorf("insert participation: %w", err)
}

func (t *pgTx) Close(ctx context.Context, p *attendance.Participation) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE participations SET time_out = $1, updated_at = $2 WHERE id = $3`,
		p.TimeOut, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("close participation %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrParticipationNotFound
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM participations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete participation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrParticipationNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func findByKey(ctx context.Context, q Querier, key attendance.Key) ([]*attendance.Participation, error) {
	rows, err := q.Query(ctx, `
		SELECT `+participationColumns+`
		FROM participations
		WHERE student_id = $1 AND event_id = $2
		ORDER BY time_in, id
	`, key.StudentID, key.EventID)
	if err != nil {
		return nil, fmt.Errorf("find participations: %w", err)
	}
	defer rows.Close()

	var out []*attendance.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanParticipation(row pgx.Row) (*attendance.Participation, error) {
	var p attendance.Participation
	if err := row.Scan(&p.ID, &p.StudentID, &p.EventID, &p.TimeIn, &p.TimeOut, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// translate keeps domain errors intact and classifies the rest.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), IsQueryCanceled(err):
		return shared.WrapError("participation", op, shared.ErrTimeout, "database operation timed out", err)
	case IsTransient(err):
		return shared.WrapError("participation", op, shared.ErrConflict, "concurrent update, please retry", err)
	case errors.Is(err, ErrConnectionClosed):
		return shared.WrapError("participation", op, shared.ErrServiceUnavailable, "database unavailable", err)
	}
	return fmt.Errorf("participation %s: %w", op, err)
}
