package query

import (
	"context"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// GetParticipationQuery selects one participation.
type GetParticipationQuery struct {
	Actor           *attendance.Admin
	ParticipationID int64
}

// ParticipationDTO is a participation with its student and event.
type ParticipationDTO struct {
	*attendance.Participation
	Student *attendance.Student `json:"student,omitempty"`
	Event   *attendance.Event   `json:"event,omitempty"`
}

// GetParticipationHandler handles GetParticipationQuery. Only admins who may
// manage the participation's event can read it.
type GetParticipationHandler struct {
	store    attendance.Store
	events   attendance.EventCatalog
	students attendance.StudentDirectory
}

// NewGetParticipationHandler creates a new GetParticipationHandler.
func NewGetParticipationHandler(
	store attendance.Store,
	events attendance.EventCatalog,
	students attendance.StudentDirectory,
) *GetParticipationHandler {
	return &GetParticipationHandler{store: store, events: events, students: students}
}

// Handle executes the query.
func (h *GetParticipationHandler) Handle(ctx context.Context, q GetParticipationQuery) (*ParticipationDTO, error) {
	if q.ParticipationID <= 0 {
		return nil, shared.NewValidationError("GetParticipation", "id", "must be greater than 0")
	}

	p, err := h.store.GetByID(ctx, q.ParticipationID)
	if err != nil {
		return nil, err
	}

	event, err := h.events.Lookup(ctx, p.EventID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if !attendance.CanManage(q.Actor, event) {
		return nil, shared.ErrNotEventManager
	}

	dto := &ParticipationDTO{Participation: p, Event: event}
	if student, err := h.students.GetByID(ctx, p.StudentID); err == nil {
		dto.Student = student
	} else if !shared.IsNotFound(err) {
		return nil, err
	}
	return dto, nil
}
