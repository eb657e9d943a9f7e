package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// Directory holds students and events. It implements attendance.EventCatalog
// and attendance.StudentDirectory.
type Directory struct {
	mu       sync.RWMutex
	students map[int64]*attendance.Student
	events   map[int64]*attendance.Event
	nextStud int64
	nextEvt  int64
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		students: make(map[int64]*attendance.Student),
		events:   make(map[int64]*attendance.Event),
	}
}

// AddStudent stores s, assigning an ID when s.ID is zero.
func (d *Directory) AddStudent(s attendance.Student) *attendance.Student {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.ID == 0 {
		d.nextStud++
		s.ID = d.nextStud
	} else if s.ID > d.nextStud {
		d.nextStud = s.ID
	}
	d.students[s.ID] = &s
	c := s
	return &c
}

// AddEvent stores e, assigning an ID when e.ID is zero.
func (d *Directory) AddEvent(e attendance.Event) *attendance.Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.ID == 0 {
		d.nextEvt++
		e.ID = d.nextEvt
	} else if e.ID > d.nextEvt {
		d.nextEvt = e.ID
	}
	e.ManagerIDs = append([]int64(nil), e.ManagerIDs...)
	d.events[e.ID] = &e
	return cloneEvent(&e)
}

// AssignManager adds adminID to the event's manager set.
func (d *Directory) AssignManager(eventID, adminID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.events[eventID]
	if !ok {
		return shared.ErrEventNotFound
	}
	if !e.HasManager(adminID) {
		e.ManagerIDs = append(e.ManagerIDs, adminID)
	}
	return nil
}

// Lookup implements attendance.EventCatalog.
func (d *Directory) Lookup(_ context.Context, eventID int64) (*attendance.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.events[eventID]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	return cloneEvent(e), nil
}

// LookupByKeyOrSchoolID implements attendance.StudentDirectory.
func (d *Directory) LookupByKeyOrSchoolID(_ context.Context, identifier string) (*attendance.Student, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, shared.ErrStudentNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if s, ok := d.students[id]; ok {
			c := *s
			return &c, nil
		}
	}
	for _, s := range d.students {
		if s.SchoolID == identifier {
			c := *s
			return &c, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

// GetByID implements attendance.StudentDirectory.
func (d *Directory) GetByID(_ context.Context, id int64) (*attendance.Student, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	c := *s
	return &c, nil
}

// Events returns every event ordered by ID.
func (d *Directory) Events() []*attendance.Event {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*attendance.Event, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StudentCount returns the number of students.
func (d *Directory) StudentCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.students)
}

func (d *Directory) title(eventID int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.events[eventID]
	if !ok {
		return "", false
	}
	return e.Title, true
}

func cloneEvent(e *attendance.Event) *attendance.Event {
	c := *e
	c.ManagerIDs = append([]int64(nil), e.ManagerIDs...)
	return &c
}
