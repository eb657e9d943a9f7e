package attendance

import (
	"strings"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY ENTITIES (read-only to the recorder)
// ══════════════════════════════════════════════════════════════════════════════

// Student is a person who can be scanned into events.
type Student struct {
	ID        int64  `json:"id"`
	SchoolID  string `json:"student_id"`
	Name      string `json:"name"`
	Course    string `json:"course,omitempty"`
	YearLevel string `json:"year_lvl,omitempty"`
	Campus    string `json:"campus,omitempty"`
}

// Event is a campus event participations are recorded against.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"time_start"`
	EndsAt      time.Time `json:"time_end"`

	// ManagerIDs lists the sub-admins assigned to this event.
	ManagerIDs []int64 `json:"manager_ids,omitempty"`
}

// HasManager reports whether adminID is assigned to the event.
func (e *Event) HasManager(adminID int64) bool {
	for _, id := range e.ManagerIDs {
		if id == adminID {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPATION
// ══════════════════════════════════════════════════════════════════════════════

// Participation is one student's attendance at one event.
type Participation struct {
	ID        int64      `json:"id"`
	StudentID int64      `json:"student_id"`
	EventID   int64      `json:"event_id"`
	TimeIn    time.Time  `json:"time_in"`
	TimeOut   *time.Time `json:"time_out"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewParticipation opens (or, with timeOut, records a completed) session.
func NewParticipation(key Key, timeIn time.Time, timeOut *time.Time, now time.Time) (*Participation, error) {
	if err := ValidateTimeRange(timeIn, timeOut); err != nil {
		return nil, err
	}
	return &Participation{
		StudentID: key.StudentID,
		EventID:   key.EventID,
		TimeIn:    timeIn,
		TimeOut:   copyTime(timeOut),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Key returns the (student, event) pair the participation belongs to.
func (p *Participation) Key() Key {
	return Key{StudentID: p.StudentID, EventID: p.EventID}
}

// IsOpen reports whether the session has not been scanned out.
func (p *Participation) IsOpen() bool {
	return p.TimeOut == nil
}

// Close sets TimeOut to now. If now is not after TimeIn (clock skew between
// writers) TimeOut becomes TimeIn plus one second so the range stays valid.
func (p *Participation) Close(now time.Time) error {
	if !p.IsOpen() {
		return shared.ErrSessionCompleted
	}
	out := now
	if !out.After(p.TimeIn) {
		out = p.TimeIn.Add(time.Second)
	}
	p.TimeOut = &out
	p.UpdatedAt = now
	return nil
}

// Snapshot converts the participation into the event payload form.
func (p *Participation) Snapshot() shared.ParticipationSnapshot {
	return shared.ParticipationSnapshot{
		ID:        p.ID,
		StudentID: p.StudentID,
		EventID:   p.EventID,
		TimeIn:    p.TimeIn,
		TimeOut:   copyTime(p.TimeOut),
	}
}

// Clone returns a deep copy.
func (p *Participation) Clone() *Participation {
	c := *p
	c.TimeOut = copyTime(p.TimeOut)
	return &c
}

// ValidateTimeRange enforces TimeOut > TimeIn when TimeOut is present.
func ValidateTimeRange(timeIn time.Time, timeOut *time.Time) error {
	if timeIn.IsZero() {
		return shared.NewValidationError("Validate", "time_in", "is required")
	}
	if timeOut != nil && !timeOut.After(timeIn) {
		return shared.ErrInvalidTimeRange
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ─────────────────────────────────────────────────────────────────────────────
// Status
// ─────────────────────────────────────────────────────────────────────────────

// Status is the attendance state of a (student, event) pair.
type Status string

const (
	StatusNone      Status = "none"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ScanStatus is the outcome of a successful scan.
type ScanStatus string

const (
	ScanJoined    ScanStatus = "joined"
	ScanAlreadyIn ScanStatus = "already_in"
	ScanTimedOut  ScanStatus = "timed_out"
)

// Summarize derives the pair status from its participation rows. The returned
// participation is the open one for StatusActive, otherwise the latest.
func Summarize(rows []*Participation) (Status, *Participation) {
	if len(rows) == 0 {
		return StatusNone, nil
	}
	var latest *Participation
	for _, p := range rows {
		if p.IsOpen() {
			return StatusActive, p
		}
		if latest == nil || p.TimeIn.After(latest.TimeIn) {
			latest = p
		}
	}
	return StatusCompleted, latest
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMINS AND AUDIT
// ══════════════════════════════════════════════════════════════════════════════

// Role distinguishes the two admin variants.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleSubAdmin   Role = "sub_admin"
)

// ParseRole normalizes a stored role name. Unknown roles map to sub-admin,
// the less privileged variant.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleSuperAdmin), "superadmin", "super-admin":
		return RoleSuperAdmin
	default:
		return RoleSubAdmin
	}
}

// Admin is an authenticated operator acting on events.
type Admin struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	Role            Role    `json:"role"`
	PasswordHash    string  `json:"-"`
	ManagedEventIDs []int64 `json:"managed_event_ids,omitempty"`
}

// IsSuperAdmin reports whether the admin has global rights.
func (a *Admin) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

// AuditLog is a human-readable record of a mutation.
type AuditLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	ActorID     *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardStats summarizes the attendance tables.
type DashboardStats struct {
	Counts    DashboardCounts   `json:"counts"`
	ChartData []EventPopularity `json:"chart_data"`
}

// DashboardCounts are the headline totals.
type DashboardCounts struct {
	Students       int64 `json:"students"`
	Events         int64 `json:"events"`
	Participations int64 `json:"participations"`
}

// EventPopularity is the participation total for one event title.
type EventPopularity struct {
	Title string `json:"title"`
	Total int64  `json:"total"`
}
