// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
	"github.com/isuventra/attendance-hub/pkg/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE RECORDER
// Owns the participation lifecycle: scan-in, scan-out, manual create, delete.
// Resolution and authorization run before the key lock; domain events are
// published only after the locked transaction has committed.
// ══════════════════════════════════════════════════════════════════════════════

// Recorder handles every participation mutation.
type Recorder struct {
	events    attendance.EventCatalog
	students  attendance.StudentDirectory
	store     attendance.Store
	publisher shared.EventPublisher

	validator *validation.Validator
	clock     timeutil.Clock
	metrics   *metrics.Manager
	log       *logger.Logger
}

// RecorderConfig contains optional collaborators. Zero values get defaults.
type RecorderConfig struct {
	Clock     timeutil.Clock
	Metrics   *metrics.Manager
	Logger    *logger.Logger
	Validator *validation.Validator
}

// NewRecorder creates a new Recorder.
func NewRecorder(
	events attendance.EventCatalog,
	students attendance.StudentDirectory,
	store attendance.Store,
	publisher shared.EventPublisher,
	config RecorderConfig,
) *Recorder {
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop()
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Validator == nil {
		config.Validator = validation.New()
	}

	return &Recorder{
		events:    events,
		students:  students,
		store:     store,
		publisher: publisher,
		validator: config.Validator,
		clock:     config.Clock,
		metrics:   config.Metrics,
		log:       config.Logger.With(logger.Component("recorder")),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Authorization
// ─────────────────────────────────────────────────────────────────────────────

// Authorize resolves the event and checks that actor may manage it. An
// absent event is reported as ErrNotEventManager, the same as a refusal.
func (r *Recorder) Authorize(ctx context.Context, actor *attendance.Admin, eventID int64) (*attendance.Event, error) {
	event, err := r.events.Lookup(ctx, eventID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotEventManager
		}
		return nil, err
	}
	if !attendance.CanManage(actor, event) {
		return nil, shared.ErrNotEventManager
	}
	return event, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers shared by the operations
// ─────────────────────────────────────────────────────────────────────────────

func (r *Recorder) validate(op string, cmd any) error {
	err := r.validator.Struct(cmd)
	if err == nil {
		return nil
	}
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return shared.NewFieldsValidationError(op, fields)
	}
	return shared.WrapError("attendance", op, shared.ErrValidation, "invalid command", err)
}

func (r *Recorder) resolveStudent(ctx context.Context, identifier string) (*attendance.Student, error) {
	return r.students.LookupByKeyOrSchoolID(ctx, strings.TrimSpace(identifier))
}

// withKeyLock wraps Store.WithKeyLock and records how long the callback
// waited for the lock on its first invocation.
func (r *Recorder) withKeyLock(ctx context.Context, key attendance.Key, fn func(tx attendance.Tx) error) error {
	requested := time.Now()
	first := true
	return r.store.WithKeyLock(ctx, key, func(tx attendance.Tx) error {
		if first {
			r.metrics.ObserveLockWait(time.Since(requested))
			first = false
		}
		return fn(tx)
	})
}

// publish emits a participation event after commit. Failures are logged: the
// mutation is already durable and must not be reported as failed.
func (r *Recorder) publish(eventType shared.EventType, p *attendance.Participation, actor *attendance.Admin) {
	if r.publisher == nil {
		return
	}
	var actorID *int64
	if actor != nil {
		id := actor.ID
		actorID = &id
	}
	event := shared.NewParticipationEvent(eventType, p.Snapshot(), actorID, r.clock.Now())
	if err := r.publisher.Publish(event); err != nil {
		r.log.Error("failed to publish participation event",
			logger.String("event_type", string(eventType)),
			logger.ParticipationID(p.ID),
			logger.Err(err),
		)
	}
}

// observe records the outcome of an operation in metrics and logs.
func (r *Recorder) observe(ctx context.Context, op, outcome string, started time.Time, err error, fields ...logger.Field) {
	log := logger.FromContextOr(ctx, r.log)
	fields = append(fields, logger.Operation(op), logger.Latency(time.Since(started)))

	if err == nil {
		r.metrics.RecordScan(op, outcome)
		log.Info("attendance recorded", append(fields, logger.ScanStatus(outcome))...)
		return
	}

	kind := shared.KindOf(err)
	r.metrics.RecordRecorderError(op, kind)
	fields = append(fields, logger.String("kind", kind), logger.Err(err))
	if kind == "internal" || kind == "timeout" || kind == "unavailable" {
		log.Error("attendance operation failed", fields...)
		return
	}
	log.Warn("attendance operation rejected", fields...)
}
