package command

import (
	"context"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCAN IN / SCAN OUT
// ══════════════════════════════════════════════════════════════════════════════

// ScanCommand is a QR scan at an event. StudentIdentifier is either the
// internal numeric key or the school-issued student number.
type ScanCommand struct {
	Actor             *attendance.Admin `json:"-"`
	EventID           int64             `json:"event_id" validate:"gt=0"`
	StudentIdentifier string            `json:"student_identifier" validate:"notblank,max=64"`
}

// ScanResult is the outcome of a successful scan.
type ScanResult struct {
	Status        attendance.ScanStatus     `json:"status"`
	Participation *attendance.Participation `json:"participation"`
	Student       *attendance.Student       `json:"student"`
	Event         *attendance.Event         `json:"event"`
}

// ScanIn opens a session for the student unless one is already open.
// A completed session for the same event is a conflict: there is no re-entry.
func (r *Recorder) ScanIn(ctx context.Context, cmd ScanCommand) (*ScanResult, error) {
	started := r.clock.Now()
	res, err := r.scanIn(ctx, cmd)

	outcome := ""
	if res != nil {
		outcome = string(res.Status)
	}
	r.observe(ctx, "scan_in", outcome, started, err, logger.EventID(cmd.EventID), logger.Identifier(cmd.StudentIdentifier))
	return res, err
}

func (r *Recorder) scanIn(ctx context.Context, cmd ScanCommand) (*ScanResult, error) {
	if err := r.validate("ScanIn", cmd); err != nil {
		return nil, err
	}

	event, err := r.Authorize(ctx, cmd.Actor, cmd.EventID)
	if err != nil {
		return nil, err
	}

	student, err := r.resolveStudent(ctx, cmd.StudentIdentifier)
	if err != nil {
		return nil, err
	}

	key := attendance.KeyOf(student.ID, event.ID)
	var result *ScanResult

	err = r.withKeyLock(ctx, key, func(tx attendance.Tx) error {
		result = nil
		rows, err := tx.FindByKey(ctx, key)
		if err != nil {
			return err
		}

		switch status, current := attendance.Summarize(rows); status {
		case attendance.StatusActive:
			result = &ScanResult{Status: attendance.ScanAlreadyIn, Participation: current.Clone()}
			return nil
		case attendance.StatusCompleted:
			return shared.ErrSessionCompleted
		}

		now := r.clock.Now()
		p, err := attendance.NewParticipation(key, now, nil, now)
		if err != nil {
			return err
		}
		if err := tx.Insert(ctx, p); err != nil {
			return err
		}
		result = &ScanResult{Status: attendance.ScanJoined, Participation: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Student = student
	result.Event = event
	if result.Status == attendance.ScanJoined {
		r.publish(shared.EventParticipationJoined, result.Participation, cmd.Actor)
	}
	return result, nil
}

// ScanOut closes the student's open session.
func (r *Recorder) ScanOut(ctx context.Context, cmd ScanCommand) (*ScanResult, error) {
	started := r.clock.Now()
	res, err := r.scanOut(ctx, cmd)

	outcome := ""
	if res != nil {
		outcome = string(res.Status)
	}
	r.observe(ctx, "scan_out", outcome, started, err, logger.EventID(cmd.EventID), logger.Identifier(cmd.StudentIdentifier))
	return res, err
}

func (r *Recorder) scanOut(ctx context.Context, cmd ScanCommand) (*ScanResult, error) {
	if err := r.validate("ScanOut", cmd); err != nil {
		return nil, err
	}

	event, err := r.Authorize(ctx, cmd.Actor, cmd.EventID)
	if err != nil {
		return nil, err
	}

	student, err := r.resolveStudent(ctx, cmd.StudentIdentifier)
	if err != nil {
		return nil, err
	}

	key := attendance.KeyOf(student.ID, event.ID)
	var closed *attendance.Participation

	err = r.withKeyLock(ctx, key, func(tx attendance.Tx) error {
		closed = nil
		rows, err := tx.FindByKey(ctx, key)
		if err != nil {
			return err
		}

		status, current := attendance.Summarize(rows)
		if status != attendance.StatusActive {
			return shared.ErrNoOpenSession
		}

		p := current.Clone()
		if err := p.Close(r.clock.Now()); err != nil {
			return err
		}
		if err := tx.Close(ctx, p); err != nil {
			return err
		}
		closed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(shared.EventParticipationTimedOut, closed, cmd.Actor)
	return &ScanResult{
		Status:        attendance.ScanTimedOut,
		Participation: closed,
		Student:       student,
		Event:         event,
	}, nil
}
