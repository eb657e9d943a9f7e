// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/retry"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LISTENER
// Writes one audit row per participation mutation. Runs after the mutation
// has committed, so a failure here never affects the mutation itself.
// ═══════════════════════════════════════════════════════════════════════════

// Audit actions.
const (
	ActionCreated = "Created"
	ActionUpdated = "Updated"
	ActionDeleted = "Deleted"
)

// AuditListener records participation events in the audit log.
type AuditListener struct {
	repo    attendance.AuditRepository
	retrier *retry.Retrier
	timeout time.Duration
	logger  *logger.Logger
}

// AuditListenerConfig configures AuditListener.
type AuditListenerConfig struct {
	// Timeout bounds one write including retries.
	Timeout time.Duration

	// Retrier defaults to retry.DatabaseRetrier.
	Retrier *retry.Retrier

	Logger *logger.Logger
}

// NewAuditListener creates a new AuditListener.
func NewAuditListener(repo attendance.AuditRepository, config AuditListenerConfig) *AuditListener {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retrier == nil {
		config.Retrier = retry.DatabaseRetrier()
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	return &AuditListener{
		repo:    repo,
		retrier: config.Retrier,
		timeout: config.Timeout,
		logger:  config.Logger.With(logger.Component("audit_listener")),
	}
}

// Handle implements shared.EventHandler.
func (l *AuditListener) Handle(event shared.Event) error {
	pe, ok := event.(*shared.ParticipationEvent)
	if !ok {
		l.logger.Warn("received non-participation event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	entry, ok := AuditEntryFor(pe)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		e := entry
		return l.repo.Append(ctx, &e)
	})
	if err != nil {
		return fmt.Errorf("append audit log for participation %d: %w", pe.ParticipationID, err)
	}

	l.logger.Debug("audit log written",
		logger.ParticipationID(pe.ParticipationID),
		logger.String("action", entry.Action),
	)
	return nil
}

// AuditEntryFor maps a participation event to its audit row.
func AuditEntryFor(e *shared.ParticipationEvent) (attendance.AuditLog, bool) {
	var action, description string
	switch e.EventType() {
	case shared.EventParticipationJoined, shared.EventParticipationCreated:
		action, description = ActionCreated, "Created new Participation"
	case shared.EventParticipationTimedOut:
		action, description = ActionUpdated, "Updated Participation details"
	case shared.EventParticipationDeleted:
		action, description = ActionDeleted, "Deleted Participation record"
	default:
		return attendance.AuditLog{}, false
	}

	var actor *int64
	if e.ActorID != nil {
		id := *e.ActorID
		actor = &id
	}
	return attendance.AuditLog{
		Action:      action,
		Description: fmt.Sprintf("%s: #%d", description, e.ParticipationID),
		ActorID:     actor,
		CreatedAt:   e.OccurredAt(),
	}, true
}
