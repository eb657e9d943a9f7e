package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

func TestDirectory_StudentLookup(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()
	ana := d.AddStudent(attendance.Student{SchoolID: "21-0001", Name: "Ana"})
	ben := d.AddStudent(attendance.Student{SchoolID: "1", Name: "Ben"})

	tests := []struct {
		name       string
		identifier string
		wantID     int64
		wantErr    error
	}{
		{"internal key first", "1", ana.ID, nil},
		{"school id fallback", "21-0001", ana.ID, nil},
		{"trimmed", "  " + strconv.FormatInt(ben.ID, 10) + " ", ben.ID, nil},
		{"unknown", "99-9999", 0, shared.ErrStudentNotFound},
		{"blank", "  ", 0, shared.ErrStudentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := d.LookupByKeyOrSchoolID(ctx, tt.identifier)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, s.ID)
		})
	}
}

func TestDirectory_EventsAndManagers(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()
	e := d.AddEvent(attendance.Event{Title: "Tech Fest 2024"})

	require.NoError(t, d.AssignManager(e.ID, 7))
	require.NoError(t, d.AssignManager(e.ID, 7))
	assert.ErrorIs(t, d.AssignManager(99, 7), shared.ErrEventNotFound)

	got, err := d.Lookup(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, got.ManagerIDs)

	got.ManagerIDs[0] = 8
	again, _ := d.Lookup(ctx, e.ID)
	assert.True(t, again.HasManager(7))

	_, err = d.Lookup(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrEventNotFound)
}

func TestAdminDirectory_Authenticate(t *testing.T) {
	ctx := context.Background()
	d := NewAdminDirectory(bcrypt.MinCost)
	_, err := d.Add(attendance.Admin{Email: "Root@Example.com", Role: attendance.RoleSuperAdmin}, "pw")
	require.NoError(t, err)

	a, err := d.Authenticate(ctx, "root@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, a.IsSuperAdmin())

	_, err = d.Authenticate(ctx, "root@example.com", "nope")
	assert.True(t, shared.IsUnauthorized(err))

	_, err = d.Authenticate(ctx, "ghost@example.com", "pw")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuditRepository_Prune(t *testing.T) {
	ctx := context.Background()
	r := NewAuditRepository()
	require.NoError(t, r.Append(ctx, &attendance.AuditLog{Action: "CREATE", CreatedAt: t0}))
	require.NoError(t, r.Append(ctx, &attendance.AuditLog{Action: "DELETE", CreatedAt: t0.Add(48 * time.Hour)}))

	n, err := r.PruneBefore(ctx, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "DELETE", entries[0].Action)
	assert.Equal(t, int64(2), entries[0].ID)
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()
	s := NewParticipationStore()
	d.AddStudent(attendance.Student{SchoolID: "a"})
	fest := d.AddEvent(attendance.Event{Title: "Tech Fest 2024"})
	forum := d.AddEvent(attendance.Event{Title: "Open Forum"})
	d.AddEvent(attendance.Event{Title: "Empty"})

	insert := func(studentID, eventID int64, at time.Time) {
		key := attendance.KeyOf(studentID, eventID)
		out := at.Add(time.Hour)
		require.NoError(t, s.WithKeyLock(ctx, key, func(tx attendance.Tx) error {
			p, err := attendance.NewParticipation(key, at, &out, at)
			require.NoError(t, err)
			return tx.Insert(ctx, p)
		}))
	}
	insert(1, fest.ID, t0)
	insert(2, fest.ID, t0)
	insert(1, forum.ID, t0)
	insert(1, 404, t0)

	a := NewAnalytics(d, s)

	records, err := a.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "", records[3].EventTitle)

	stats, err := a.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.DashboardCounts{Students: 1, Events: 3, Participations: 4}, stats.Counts)
	assert.Equal(t, []attendance.EventPopularity{
		{Title: "Tech Fest 2024", Total: 2},
		{Title: "Open Forum", Total: 1},
	}, stats.ChartData)
}
