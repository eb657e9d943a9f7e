// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"strings"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK STATUS QUERY
// Read-only attendance state of a (student, event) pair. Takes no lock: a
// concurrent scan may commit right after the read.
// ══════════════════════════════════════════════════════════════════════════════

// CheckStatusQuery identifies the pair.
type CheckStatusQuery struct {
	EventID           int64
	StudentIdentifier string
}

// CheckStatusResult is the state of the pair. Participation is the open
// session when active, the latest one when completed, and nil otherwise.
type CheckStatusResult struct {
	Status        attendance.Status         `json:"status"`
	Participation *attendance.Participation `json:"participation,omitempty"`
}

// CheckStatusHandler handles CheckStatusQuery.
type CheckStatusHandler struct {
	events   attendance.EventCatalog
	students attendance.StudentDirectory
	store    attendance.Store
}

// NewCheckStatusHandler creates a new CheckStatusHandler.
func NewCheckStatusHandler(
	events attendance.EventCatalog,
	students attendance.StudentDirectory,
	store attendance.Store,
) *CheckStatusHandler {
	return &CheckStatusHandler{events: events, students: students, store: store}
}

// Handle executes the query.
func (h *CheckStatusHandler) Handle(ctx context.Context, q CheckStatusQuery) (*CheckStatusResult, error) {
	identifier := strings.TrimSpace(q.StudentIdentifier)
	if q.EventID <= 0 {
		return nil, shared.NewValidationError("CheckStatus", "event_id", "must be greater than 0")
	}
	if identifier == "" {
		return nil, shared.NewValidationError("CheckStatus", "student_identifier", "is required")
	}

	event, err := h.events.Lookup(ctx, q.EventID)
	if err != nil {
		return nil, err
	}
	student, err := h.students.LookupByKeyOrSchoolID(ctx, identifier)
	if err != nil {
		return nil, err
	}

	rows, err := h.store.FindByKey(ctx, attendance.KeyOf(student.ID, event.ID))
	if err != nil {
		return nil, shared.WrapError("query", "CheckStatus", shared.ErrServiceUnavailable, "failed to read participations", err)
	}

	status, p := attendance.Summarize(rows)
	return &CheckStatusResult{Status: status, Participation: p}, nil
}
