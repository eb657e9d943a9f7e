package command

import (
	"context"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN-DRIVEN MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ManualCreateCommand records a participation entered by an admin.
type ManualCreateCommand struct {
	Actor     *attendance.Admin `json:"-"`
	StudentID int64             `json:"student_id" validate:"gt=0"`
	EventID   int64             `json:"event_id" validate:"gt=0"`
	TimeIn    time.Time         `json:"time_in" validate:"required"`
	TimeOut   *time.Time        `json:"time_out"`
}

// ManualCreate validates before any lookup, so an invalid range has no side
// effects. Only an open (TimeOut-less) entry can collide with an existing
// open session.
func (r *Recorder) ManualCreate(ctx context.Context, cmd ManualCreateCommand) (*attendance.Participation, error) {
	started := r.clock.Now()
	p, err := r.manualCreate(ctx, cmd)
	r.observe(ctx, "manual_create", "created", started, err, logger.EventID(cmd.EventID), logger.StudentID(cmd.StudentID))
	return p, err
}

func (r *Recorder) manualCreate(ctx context.Context, cmd ManualCreateCommand) (*attendance.Participation, error) {
	if err := r.validate("ManualCreate", cmd); err != nil {
		return nil, err
	}
	if err := attendance.ValidateTimeRange(cmd.TimeIn, cmd.TimeOut); err != nil {
		return nil, err
	}

	event, err := r.Authorize(ctx, cmd.Actor, cmd.EventID)
	if err != nil {
		return nil, err
	}

	student, err := r.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	key := attendance.KeyOf(student.ID, event.ID)
	var created *attendance.Participation

	err = r.withKeyLock(ctx, key, func(tx attendance.Tx) error {
		created = nil
		if cmd.TimeOut == nil {
			rows, err := tx.FindByKey(ctx, key)
			if err != nil {
				return err
			}
			if status, _ := attendance.Summarize(rows); status == attendance.StatusActive {
				return shared.ErrDuplicateOpenSession
			}
		}

		p, err := attendance.NewParticipation(key, cmd.TimeIn, cmd.TimeOut, r.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.Insert(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(shared.EventParticipationCreated, created, cmd.Actor)
	return created, nil
}

// DeleteCommand removes a participation.
type DeleteCommand struct {
	Actor           *attendance.Admin `json:"-"`
	ParticipationID int64             `json:"participation_id" validate:"gt=0"`
}

// Delete removes a participation after checking the actor manages its event.
func (r *Recorder) Delete(ctx context.Context, cmd DeleteCommand) (*attendance.Participation, error) {
	started := r.clock.Now()
	p, err := r.delete(ctx, cmd)
	r.observe(ctx, "delete", "deleted", started, err, logger.ParticipationID(cmd.ParticipationID))
	return p, err
}

func (r *Recorder) delete(ctx context.Context, cmd DeleteCommand) (*attendance.Participation, error) {
	if err := r.validate("Delete", cmd); err != nil {
		return nil, err
	}

	p, err := r.store.GetByID(ctx, cmd.ParticipationID)
	if err != nil {
		return nil, err
	}

	if _, err := r.Authorize(ctx, cmd.Actor, p.EventID); err != nil {
		return nil, err
	}

	// The row is re-read under the lock so the response and the audit entry
	// carry a time_out set by a concurrent scan-out.
	var deleted *attendance.Participation
	err = r.withKeyLock(ctx, p.Key(), func(tx attendance.Tx) error {
		rows, err := tx.FindByKey(ctx, p.Key())
		if err != nil {
			return err
		}
		deleted = nil
		for _, row := range rows {
			if row.ID == p.ID {
				deleted = row
				break
			}
		}
		if deleted == nil {
			return shared.ErrParticipationNotFound
		}
		return tx.Delete(ctx, deleted.ID)
	})
	if err != nil {
		return nil, err
	}

	r.publish(shared.EventParticipationDeleted, deleted, cmd.Actor)
	return deleted, nil
}
