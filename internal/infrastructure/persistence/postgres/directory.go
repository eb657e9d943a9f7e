package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// Read access to students and events for the recorder, plus the inserts the
// seed command needs.
// ══════════════════════════════════════════════════════════════════════════════

// Directory implements attendance.EventCatalog and attendance.StudentDirectory.
type Directory struct {
	conn *Connection
}

// NewDirectory creates a new Directory.
func NewDirectory(conn *Connection) *Directory {
	return &Directory{conn: conn}
}

const studentColumns = `id, student_id, name, COALESCE(course, ''), COALESCE(year_lvl, ''), COALESCE(campus, '')`

// Lookup implements attendance.EventCatalog.
func (d *Directory) Lookup(ctx context.Context, eventID int64) (*attendance.Event, error) {
	var (
		e          attendance.Event
		start, end *time.Time
	)
	err := d.conn.QueryRow(ctx, `
		SELECT e.id, e.title, COALESCE(e.description, ''), COALESCE(e.location, ''),
		       e.time_start, e.time_end,
		       COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM events e
		LEFT JOIN event_managers m ON m.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.id
	`, eventID).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &start, &end, &e.ManagerIDs)
	if IsNoRows(err) {
		return nil, shared.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup event %d: %w", eventID, err)
	}
	if start != nil {
		e.StartsAt = *start
	}
	if end != nil {
		e.EndsAt = *end
	}
	return &e, nil
}

// LookupByKeyOrSchoolID implements attendance.StudentDirectory.
func (d *Directory) LookupByKeyOrSchoolID(ctx context.Context, identifier string) (*attendance.Student, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, shared.ErrStudentNotFound
	}

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		s, err := d.GetByID(ctx, id)
		if err == nil || !shared.IsNotFound(err) {
			return s, err
		}
	}

	return d.scanStudent(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, identifier)
}

// GetByID implements attendance.StudentDirectory.
func (d *Directory) GetByID(ctx context.Context, id int64) (*attendance.Student, error) {
	return d.scanStudent(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

func (d *Directory) scanStudent(ctx context.Context, query string, arg any) (*attendance.Student, error) {
	var s attendance.Student
	err := d.conn.QueryRow(ctx, query, arg).Scan(&s.ID, &s.SchoolID, &s.Name, &s.Course, &s.YearLevel, &s.Campus)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	return &s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes used by cmd/seed
// ─────────────────────────────────────────────────────────────────────────────

// UpsertStudent inserts s or updates the row with the same school id, and
// sets s.ID.
func (d *Directory) UpsertStudent(ctx context.Context, s *attendance.Student) error {
	err := d.conn.QueryRow(ctx, `
		INSERT INTO students (student_id, name, course, year_lvl, campus)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id) DO UPDATE
		SET name = EXCLUDED.name, course = EXCLUDED.course, year_lvl = EXCLUDED.year_lvl,
		    campus = EXCLUDED.campus, updated_at = NOW()
		RETURNING id
	`, s.SchoolID, s.Name, s.Course, s.YearLevel, s.Campus).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("upsert student %q: %w", s.SchoolID, err)
	}
	return nil
}

// CreateEvent inserts e and its managers, and sets e.ID.
func (d *Directory) CreateEvent(ctx context.Context, e *attendance.Event, createdBy *int64) error {
	err := d.conn.QueryRow(ctx, `
		INSERT INTO events (title, description, location, time_start, time_end, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, createdBy).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create event %q: %w", e.Title, err)
	}
	for _, adminID := range e.ManagerIDs {
		if err := d.AssignManager(ctx, e.ID, adminID); err != nil {
			return err
		}
	}
	return nil
}

// EnsureEvent reuses the event with the same title and start time, or
// creates it. e.ID is set either way.
func (d *Directory) EnsureEvent(ctx context.Context, e *attendance.Event) error {
	err := d.conn.QueryRow(ctx, `
		SELECT id FROM events WHERE title = $1 AND time_start = $2 ORDER BY id LIMIT 1
	`, e.Title, e.StartsAt).Scan(&e.ID)
	if IsNoRows(err) {
		return d.CreateEvent(ctx, e, nil)
	}
	if err != nil {
		return fmt.Errorf("find event %q: %w", e.Title, err)
	}
	return nil
}

// AssignManager adds adminID to the event's managers.
func (d *Directory) AssignManager(ctx context.Context, eventID, adminID int64) error {
	_, err := d.conn.Exec(ctx, `
		INSERT INTO event_managers (event_id, user_id) VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, adminID)
	if IsForeignKeyViolation(err) {
		return shared.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("assign manager: %w", err)
	}
	return nil
}
