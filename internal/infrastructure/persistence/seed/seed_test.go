package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isuventra/attendance-hub/internal/domain/forecast"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/memory"
)

func loadMemory(t *testing.T, opts Options) (*Result, *memory.Directory, *memory.AdminDirectory, *memory.ParticipationStore) {
	t.Helper()
	dir := memory.NewDirectory()
	admins := memory.NewAdminDirectory(bcrypt.MinCost)
	store := memory.NewParticipationStore()

	res, err := Load(context.Background(), MemoryTarget(dir, admins), store, opts, nil)
	require.NoError(t, err)
	return res, dir, admins, store
}

func TestLoad_Memory(t *testing.T) {
	opts := DefaultOptions()
	res, dir, admins, store := loadMemory(t, opts)

	assert.Equal(t, opts.Students, res.Students)
	assert.Equal(t, opts.Students, dir.StudentCount())
	require.Len(t, res.Events, 3)
	assert.Equal(t, "Tech Fest 2024", res.Events[2].Title)
	assert.Equal(t, 25+36+48, res.Participations)
	assert.Len(t, store.All(), 25+36+48)

	newest, err := dir.Lookup(context.Background(), res.Events[2].ID)
	require.NoError(t, err)
	assert.True(t, newest.HasManager(res.Manager.ID))

	oldest, err := dir.Lookup(context.Background(), res.Events[0].ID)
	require.NoError(t, err)
	assert.False(t, oldest.HasManager(res.Manager.ID))

	a, err := admins.Authenticate(context.Background(), opts.SuperAdminEmail, opts.Password)
	require.NoError(t, err)
	assert.True(t, a.IsSuperAdmin())
}

func TestLoad_FeedsForecast(t *testing.T) {
	_, dir, _, store := loadMemory(t, DefaultOptions())

	records, err := memory.NewAnalytics(dir, store).Snapshot(context.Background())
	require.NoError(t, err)

	results := forecast.NewEngine().Compute(records)
	require.Contains(t, results, "Tech Fest")
	r := results["Tech Fest"]
	require.NotNil(t, r.Forecast)
	assert.Equal(t, []string{"2022", "2023", "2024"}, r.Forecast.Years)
	assert.Equal(t, []int{25, 36, 48}, r.Forecast.Actual)
}

func TestLoad_ParticipationsSkipExistingPairs(t *testing.T) {
	dir := memory.NewDirectory()
	admins := memory.NewAdminDirectory(bcrypt.MinCost)
	store := memory.NewParticipationStore()
	target := MemoryTarget(dir, admins)

	opts := DefaultOptions()
	opts.Students = 5
	opts.Years = []int{2024}
	opts.Attendance = []int{5}

	first, err := Load(context.Background(), target, store, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Participations)

	added, err := addParticipation(context.Background(), store, 1, first.Events[0].ID,
		first.Events[0].StartsAt, first.Events[0].EndsAt)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, store.All(), 5)
}

func TestLoad_MismatchedOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Attendance = []int{1}

	_, err := Load(context.Background(), MemoryTarget(memory.NewDirectory(), memory.NewAdminDirectory(bcrypt.MinCost)),
		memory.NewParticipationStore(), opts, nil)
	assert.Error(t, err)
}

func TestLoad_AttendanceCappedByStudents(t *testing.T) {
	opts := DefaultOptions()
	opts.Students = 10
	opts.Years = []int{2023, 2024}
	opts.Attendance = []int{4, 50}

	res, _, _, _ := loadMemory(t, opts)
	assert.Equal(t, 14, res.Participations)
}
