package command

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Fixtures
// ═══════════════════════════════════════════════════════════════════════════

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishAll(events []shared.Event) error {
	for _, e := range events {
		_ = p.Publish(e)
	}
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	recorder  *Recorder
	store     *memory.ParticipationStore
	dir       *memory.Directory
	publisher *recordingPublisher
	clock     *timeutil.FixedClock

	student *attendance.Student
	event   *attendance.Event
	other   *attendance.Event

	super    *attendance.Admin
	manager  *attendance.Admin
	outsider *attendance.Admin
}

var start = time.Date(2024, 9, 12, 8, 30, 0, 0, timeutil.ManilaTZ)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := memory.NewDirectory()
	store := memory.NewParticipationStore()
	pub := &recordingPublisher{}
	clock := timeutil.NewFixedClock(start)

	f := &fixture{
		store:     store,
		dir:       dir,
		publisher: pub,
		clock:     clock,
		student:   dir.AddStudent(attendance.Student{SchoolID: "21-00417", Name: "Maria Santos"}),
		event:     dir.AddEvent(attendance.Event{Title: "Tech Fest 2024", ManagerIDs: []int64{2}}),
		other:     dir.AddEvent(attendance.Event{Title: "Open Forum"}),
		super:     &attendance.Admin{ID: 1, Role: attendance.RoleSuperAdmin},
		manager:   &attendance.Admin{ID: 2, Role: attendance.RoleSubAdmin},
		outsider:  &attendance.Admin{ID: 3, Role: attendance.RoleSubAdmin},
	}
	f.recorder = NewRecorder(dir, dir, store, pub, RecorderConfig{
		Clock:   clock,
		Metrics: metrics.Nop(),
		Logger:  logger.Nop(),
	})
	return f
}

func (f *fixture) scan(actor *attendance.Admin, identifier string) ScanCommand {
	return ScanCommand{Actor: actor, EventID: f.event.ID, StudentIdentifier: identifier}
}

// ═══════════════════════════════════════════════════════════════════════════
// ScanIn / ScanOut
// ═══════════════════════════════════════════════════════════════════════════

func TestScanIn_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.recorder.ScanIn(ctx, f.scan(f.manager, "21-00417"))
	require.NoError(t, err)
	assert.Equal(t, attendance.ScanJoined, res.Status)
	assert.Equal(t, start, res.Participation.TimeIn)
	assert.Nil(t, res.Participation.TimeOut)
	assert.Equal(t, f.student.ID, res.Student.ID)

	res, err = f.recorder.ScanIn(ctx, f.scan(f.manager, strconv.FormatInt(f.student.ID, 10)))
	require.NoError(t, err)
	assert.Equal(t, attendance.ScanAlreadyIn, res.Status)

	f.clock.Advance(2 * time.Hour)
	res, err = f.recorder.ScanOut(ctx, f.scan(f.manager, "21-00417"))
	require.NoError(t, err)
	assert.Equal(t, attendance.ScanTimedOut, res.Status)
	require.NotNil(t, res.Participation.TimeOut)
	assert.Equal(t, start.Add(2*time.Hour), *res.Participation.TimeOut)

	// No re-entry after a completed session.
	_, err = f.recorder.ScanIn(ctx, f.scan(f.manager, "21-00417"))
	assert.ErrorIs(t, err, shared.ErrSessionCompleted)
	assert.True(t, shared.IsConflict(err))

	assert.Equal(t, []shared.EventType{
		shared.EventParticipationJoined,
		shared.EventParticipationTimedOut,
	}, f.publisher.types())
	assert.Equal(t, 1, f.store.Count())
}

func TestScanOut_WithoutOpenSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.recorder.ScanOut(context.Background(), f.scan(f.super, "21-00417"))
	assert.ErrorIs(t, err, shared.ErrNoOpenSession)
	assert.True(t, shared.IsNotFound(err))
	assert.Empty(t, f.publisher.types())
}

func TestScanOut_ClockSkew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.recorder.ScanIn(ctx, f.scan(f.super, "21-00417"))
	require.NoError(t, err)

	f.clock.Set(start.Add(-time.Minute))
	res, err := f.recorder.ScanOut(ctx, f.scan(f.super, "21-00417"))
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), *res.Participation.TimeOut)
}

func TestScan_Rejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		cmd   ScanCommand
		check func(error) bool
	}{
		{"blank identifier", f.scan(f.manager, "   "), shared.IsValidation},
		{"missing event id", ScanCommand{Actor: f.manager, StudentIdentifier: "21-00417"}, shared.IsValidation},
		{"not a manager", f.scan(f.outsider, "21-00417"), shared.IsForbidden},
		{"nil actor", f.scan(nil, "21-00417"), shared.IsForbidden},
		{"absent event", ScanCommand{Actor: f.super, EventID: 999, StudentIdentifier: "21-00417"}, shared.IsForbidden},
		{"other event", ScanCommand{Actor: f.manager, EventID: f.other.ID, StudentIdentifier: "21-00417"}, shared.IsForbidden},
		{"unknown student", f.scan(f.manager, "00-00000"), shared.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.recorder.ScanIn(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}

	assert.Equal(t, 0, f.store.Count())
	assert.Empty(t, f.publisher.types())
}

func TestScanIn_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		joined   int
		already  int
		conflict int
	)
	startGate := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-startGate
			res, err := f.recorder.ScanIn(ctx, f.scan(f.manager, "21-00417"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Status == attendance.ScanJoined:
				joined++
			case err == nil && res.Status == attendance.ScanAlreadyIn:
				already++
			case shared.IsConflict(err):
				conflict++
			default:
				t.Errorf("unexpected result: %+v, %v", res, err)
			}
		}()
	}
	close(startGate)
	wg.Wait()

	assert.Equal(t, 1, joined)
	assert.Equal(t, n-1, already+conflict)
	assert.Equal(t, 1, f.store.OpenSessions(attendance.KeyOf(f.student.ID, f.event.ID)))
	assert.Len(t, f.publisher.types(), 1)
}

func TestScanInScanOut_ConcurrentPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	students := make([]*attendance.Student, 20)
	for i := range students {
		students[i] = f.dir.AddStudent(attendance.Student{SchoolID: "S-" + strconv.Itoa(i)})
	}

	var wg sync.WaitGroup
	for _, s := range students {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _ = f.recorder.ScanIn(ctx, f.scan(f.super, id))
			}(s.SchoolID)
		}
	}
	wg.Wait()

	for _, s := range students {
		assert.Equal(t, 1, f.store.OpenSessions(attendance.KeyOf(s.ID, f.event.ID)))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ManualCreate / Delete
// ═══════════════════════════════════════════════════════════════════════════

func TestManualCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := start.Add(-3 * time.Hour)
	out := in.Add(time.Hour)

	p, err := f.recorder.ManualCreate(ctx, ManualCreateCommand{
		Actor: f.manager, StudentID: f.student.ID, EventID: f.event.ID, TimeIn: in, TimeOut: &out,
	})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.False(t, p.IsOpen())

	open, err := f.recorder.ManualCreate(ctx, ManualCreateCommand{
		Actor: f.manager, StudentID: f.student.ID, EventID: f.event.ID, TimeIn: start,
	})
	require.NoError(t, err)
	assert.True(t, open.IsOpen())

	_, err = f.recorder.ManualCreate(ctx, ManualCreateCommand{
		Actor: f.manager, StudentID: f.student.ID, EventID: f.event.ID, TimeIn: start.Add(time.Minute),
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateOpenSession)

	assert.Equal(t, 2, f.store.Count())
	assert.Equal(t, []shared.EventType{
		shared.EventParticipationCreated,
		shared.EventParticipationCreated,
	}, f.publisher.types())
}

func TestManualCreate_ValidationHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	equal := start

	tests := []struct {
		name string
		cmd  ManualCreateCommand
	}{
		{"time_out equals time_in", ManualCreateCommand{Actor: f.outsider, StudentID: f.student.ID, EventID: 999, TimeIn: start, TimeOut: &equal}},
		{"missing time_in", ManualCreateCommand{Actor: f.super, StudentID: f.student.ID, EventID: f.event.ID}},
		{"missing student", ManualCreateCommand{Actor: f.super, EventID: f.event.ID, TimeIn: start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.recorder.ManualCreate(ctx, tt.cmd)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}

	assert.Equal(t, 0, f.store.Count())
	assert.Empty(t, f.publisher.types())
}

func TestManualCreate_UnknownStudent(t *testing.T) {
	f := newFixture(t)

	_, err := f.recorder.ManualCreate(context.Background(), ManualCreateCommand{
		Actor: f.super, StudentID: 404, EventID: f.event.ID, TimeIn: start,
	})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.recorder.ScanIn(ctx, f.scan(f.super, "21-00417"))
	require.NoError(t, err)
	id := res.Participation.ID

	_, err = f.recorder.Delete(ctx, DeleteCommand{Actor: f.outsider, ParticipationID: id})
	assert.True(t, shared.IsForbidden(err))
	assert.Equal(t, 1, f.store.Count())

	deleted, err := f.recorder.Delete(ctx, DeleteCommand{Actor: f.manager, ParticipationID: id})
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID)
	assert.Equal(t, 0, f.store.Count())

	_, err = f.recorder.Delete(ctx, DeleteCommand{Actor: f.manager, ParticipationID: id})
	assert.ErrorIs(t, err, shared.ErrParticipationNotFound)

	_, err = f.recorder.Delete(ctx, DeleteCommand{Actor: f.manager})
	assert.True(t, shared.IsValidation(err))

	// A deleted session allows a fresh scan-in.
	res, err = f.recorder.ScanIn(ctx, f.scan(f.manager, "21-00417"))
	require.NoError(t, err)
	assert.Equal(t, attendance.ScanJoined, res.Status)

	assert.Equal(t, []shared.EventType{
		shared.EventParticipationJoined,
		shared.EventParticipationDeleted,
		shared.EventParticipationJoined,
	}, f.publisher.types())
}

// interleavingStore runs between once the unlocked GetByID has returned.
type interleavingStore struct {
	attendance.Store
	between func()
}

func (s *interleavingStore) GetByID(ctx context.Context, id int64) (*attendance.Participation, error) {
	p, err := s.Store.GetByID(ctx, id)
	if s.between != nil {
		s.between()
		s.between = nil
	}
	return p, err
}

func TestDelete_ReturnsRowClosedConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.recorder.ScanIn(ctx, f.scan(f.super, "21-00417"))
	require.NoError(t, err)
	f.clock.Advance(45 * time.Minute)

	store := &interleavingStore{Store: f.store, between: func() {
		_, err := f.recorder.ScanOut(ctx, f.scan(f.super, "21-00417"))
		require.NoError(t, err)
	}}
	pub := &recordingPublisher{}
	deleter := NewRecorder(f.dir, f.dir, store, pub, RecorderConfig{
		Clock:   f.clock,
		Metrics: metrics.Nop(),
		Logger:  logger.Nop(),
	})

	deleted, err := deleter.Delete(ctx, DeleteCommand{Actor: f.super, ParticipationID: res.Participation.ID})
	require.NoError(t, err)
	require.NotNil(t, deleted.TimeOut)
	assert.Equal(t, start.Add(45*time.Minute), *deleted.TimeOut)
	assert.Equal(t, 0, f.store.Count())

	require.Len(t, pub.events, 1)
	ev, ok := pub.events[0].(*shared.ParticipationEvent)
	require.True(t, ok)
	require.NotNil(t, ev.TimeOut)
	assert.Equal(t, start.Add(45*time.Minute), *ev.TimeOut)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e, err := f.recorder.Authorize(ctx, f.manager, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, f.event.ID, e.ID)

	_, err = f.recorder.Authorize(ctx, f.super, 999)
	assert.ErrorIs(t, err, shared.ErrNotEventManager)

	managed := &attendance.Admin{ID: 9, Role: attendance.RoleSubAdmin, ManagedEventIDs: []int64{f.other.ID}}
	_, err = f.recorder.Authorize(ctx, managed, f.other.ID)
	assert.NoError(t, err)
}
