// Package seed loads a demo dataset: students, a recurring event family
// spanning several years, admins, and completed participations.
//
// The same dataset backs cmd/seed (PostgreSQL) and the memory driver of
// cmd/server, so the forecast and dashboard have something to show.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TARGET
// ══════════════════════════════════════════════════════════════════════════════

// Target receives the directory rows. Implementations set the ID of every
// value they store.
type Target interface {
	AddStudent(ctx context.Context, s *attendance.Student) error
	AddEvent(ctx context.Context, e *attendance.Event) error
	AddAdmin(ctx context.Context, a *attendance.Admin, plain string) error
	AssignManager(ctx context.Context, eventID, adminID int64) error
}

type postgresTarget struct {
	dir    *postgres.Directory
	admins *postgres.AdminDirectory
}

// PostgresTarget writes through the PostgreSQL directories.
func PostgresTarget(dir *postgres.Directory, admins *postgres.AdminDirectory) Target {
	return &postgresTarget{dir: dir, admins: admins}
}

func (t *postgresTarget) AddStudent(ctx context.Context, s *attendance.Student) error {
	return t.dir.UpsertStudent(ctx, s)
}

func (t *postgresTarget) AddEvent(ctx context.Context, e *attendance.Event) error {
	return t.dir.EnsureEvent(ctx, e)
}

func (t *postgresTarget) AddAdmin(ctx context.Context, a *attendance.Admin, plain string) error {
	return t.admins.Create(ctx, a, plain)
}

func (t *postgresTarget) AssignManager(ctx context.Context, eventID, adminID int64) error {
	return t.dir.AssignManager(ctx, eventID, adminID)
}

type memoryTarget struct {
	dir    *memory.Directory
	admins *memory.AdminDirectory
}

// MemoryTarget writes into the in-process directories.
func MemoryTarget(dir *memory.Directory, admins *memory.AdminDirectory) Target {
	return &memoryTarget{dir: dir, admins: admins}
}

func (t *memoryTarget) AddStudent(_ context.Context, s *attendance.Student) error {
	*s = *t.dir.AddStudent(*s)
	return nil
}

func (t *memoryTarget) AddEvent(_ context.Context, e *attendance.Event) error {
	*e = *t.dir.AddEvent(*e)
	return nil
}

func (t *memoryTarget) AddAdmin(_ context.Context, a *attendance.Admin, plain string) error {
	stored, err := t.admins.Add(*a, plain)
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

func (t *memoryTarget) AssignManager(_ context.Context, eventID, adminID int64) error {
	return t.dir.AssignManager(eventID, adminID)
}

// ══════════════════════════════════════════════════════════════════════════════
// DATASET
// ══════════════════════════════════════════════════════════════════════════════

// Options shapes the generated dataset.
type Options struct {
	// Students is the number of generated students.
	Students int

	// Years lists the editions of the recurring event; the first edition
	// draws Attendance[0] participants and so on.
	Years      []int
	Attendance []int

	// EventTitle is the base name; each edition is titled "<base> <year>".
	EventTitle string

	// Admin credentials. Managers are assigned to the newest edition only.
	SuperAdminEmail string
	ManagerEmail    string
	Password        string

	Location *time.Location
}

// DefaultOptions returns a small dataset with growing attendance.
func DefaultOptions() Options {
	return Options{
		Students:        60,
		Years:           []int{2022, 2023, 2024},
		Attendance:      []int{25, 36, 48},
		EventTitle:      "Tech Fest",
		SuperAdminEmail: "admin@example.edu",
		ManagerEmail:    "manager@example.edu",
		Password:        "change-me-please",
		Location:        time.UTC,
	}
}

// Result summarizes what Load wrote.
type Result struct {
	Students       int
	Events         []*attendance.Event
	Participations int
	SuperAdmin     *attendance.Admin
	Manager        *attendance.Admin
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Load writes the dataset into target and store. Participations for a pair
// that already has rows are skipped, so Load can be re-run.
func Load(ctx context.Context, target Target, store attendance.Store, opts Options, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.Years) != len(opts.Attendance) {
		return nil, fmt.Errorf("seed: %d years but %d attendance counts", len(opts.Years), len(opts.Attendance))
	}

	res := &Result{}

	// ─── admins ───
	super := &attendance.Admin{Email: opts.SuperAdminEmail, Name: "Super Admin", Role: attendance.RoleSuperAdmin}
	if err := target.AddAdmin(ctx, super, opts.Password); err != nil {
		return nil, fmt.Errorf("seed: super admin: %w", err)
	}
	manager := &attendance.Admin{Email: opts.ManagerEmail, Name: "Event Manager", Role: attendance.RoleSubAdmin}
	if err := target.AddAdmin(ctx, manager, opts.Password); err != nil {
		return nil, fmt.Errorf("seed: manager: %w", err)
	}
	res.SuperAdmin, res.Manager = super, manager

	// ─── students ───
	students := make([]*attendance.Student, 0, opts.Students)
	for i := 1; i <= opts.Students; i++ {
		s := &attendance.Student{
			SchoolID:  fmt.Sprintf("2024-%05d", i),
			Name:      fmt.Sprintf("Student %03d", i),
			Course:    courses[i%len(courses)],
			YearLevel: fmt.Sprintf("%d", i%4+1),
			Campus:    "Main",
		}
		if err := target.AddStudent(ctx, s); err != nil {
			return nil, fmt.Errorf("seed: student %s: %w", s.SchoolID, err)
		}
		students = append(students, s)
	}
	res.Students = len(students)

	// ─── events and participations ───
	for i, year := range opts.Years {
		start := time.Date(year, time.March, 15, 9, 0, 0, 0, opts.Location)
		e := &attendance.Event{
			Title:       fmt.Sprintf("%s %d", opts.EventTitle, year),
			Description: "Annual technology festival",
			Location:    "Main Gymnasium",
			StartsAt:    start,
			EndsAt:      start.Add(8 * time.Hour),
		}
		if err := target.AddEvent(ctx, e); err != nil {
			return nil, fmt.Errorf("seed: event %q: %w", e.Title, err)
		}
		if i == len(opts.Years)-1 {
			if err := target.AssignManager(ctx, e.ID, manager.ID); err != nil {
				return nil, fmt.Errorf("seed: assign manager: %w", err)
			}
			e.ManagerIDs = append(e.ManagerIDs, manager.ID)
		}
		res.Events = append(res.Events, e)

		count := opts.Attendance[i]
		if count > len(students) {
			count = len(students)
		}
		for j := 0; j < count; j++ {
			in := start.Add(time.Duration(j%60) * time.Minute)
			out := in.Add(time.Duration(90+j%120) * time.Minute)
			added, err := addParticipation(ctx, store, students[j].ID, e.ID, in, out)
			if err != nil {
				return nil, fmt.Errorf("seed: participation %d/%d: %w", students[j].ID, e.ID, err)
			}
			if added {
				res.Participations++
			}
		}
		log.Info("seeded event",
			logger.String("title", e.Title),
			logger.Int64("event_id", e.ID),
			logger.Int("participants", count),
		)
	}

	return res, nil
}

var courses = []string{"BSCS", "BSIT", "BSIS", "BSEMC"}

func addParticipation(ctx context.Context, store attendance.Store, studentID, eventID int64, in, out time.Time) (bool, error) {
	key := attendance.KeyOf(studentID, eventID)
	added := false
	err := store.WithKeyLock(ctx, key, func(tx attendance.Tx) error {
		rows, err := tx.FindByKey(ctx, key)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return nil
		}
		p, err := attendance.NewParticipation(key, in, &out, out)
		if err != nil {
			return err
		}
		if err := tx.Insert(ctx, p); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}
