package attendance

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPATION STORE
// ══════════════════════════════════════════════════════════════════════════════

// Key identifies the (student, event) pair a lock is taken on.
type Key struct {
	StudentID int64
	EventID   int64
}

// KeyOf builds a Key.
func KeyOf(studentID, eventID int64) Key {
	return Key{StudentID: studentID, EventID: eventID}
}

// Tx is the view of the store inside a key-locked transaction. Writes become
// visible to other callers only when the callback returns nil.
type Tx interface {
	// FindByKey returns all participations for the pair ordered by TimeIn.
	FindByKey(ctx context.Context, key Key) ([]*Participation, error)

	// Insert stores p and assigns p.ID.
	// Returns ErrDuplicateOpenSession if it would open a second session.
	Insert(ctx context.Context, p *Participation) error

	// Close persists p.TimeOut and p.UpdatedAt.
	Close(ctx context.Context, p *Participation) error

	// Delete removes the participation.
	// Returns ErrParticipationNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}

// Store owns participation rows.
type Store interface {
	// WithKeyLock runs fn while holding the exclusive lock for key inside one
	// transaction. A non-nil error from fn rolls everything back.
	WithKeyLock(ctx context.Context, key Key, fn func(tx Tx) error) error

	// GetByID returns a participation without locking.
	// Returns ErrParticipationNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*Participation, error)

	// FindByKey is the unlocked read used by status checks.
	FindByKey(ctx context.Context, key Key) ([]*Participation, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXTERNAL COLLABORATORS
// ══════════════════════════════════════════════════════════════════════════════

// EventCatalog resolves events.
type EventCatalog interface {
	// Lookup returns ErrEventNotFound when the event does not exist.
	Lookup(ctx context.Context, eventID int64) (*Event, error)
}

// StudentDirectory resolves students.
type StudentDirectory interface {
	// LookupByKeyOrSchoolID tries the internal numeric key first and falls
	// back to the school-issued student number.
	// Returns ErrStudentNotFound when neither matches.
	LookupByKeyOrSchoolID(ctx context.Context, identifier string) (*Student, error)

	// GetByID resolves a student by internal key only.
	GetByID(ctx context.Context, id int64) (*Student, error)
}

// AdminDirectory authenticates operators.
type AdminDirectory interface {
	// Authenticate returns ErrInvalidCredentials for an unknown email or a
	// wrong password.
	Authenticate(ctx context.Context, email, password string) (*Admin, error)
}

// AuditRepository persists audit log rows.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditLog) error

	// PruneBefore deletes entries created before cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsReader computes dashboard aggregates.
type StatsReader interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}
