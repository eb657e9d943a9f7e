package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isuventra/attendance-hub/internal/application/command"
	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/isuventra/attendance-hub/internal/infrastructure/persistence/seed"
	"github.com/isuventra/attendance-hub/pkg/logger"
)

type wired struct {
	opts    Options
	backend *Backend
	app     *App
	seeded  *seed.Result
}

func newWired(t *testing.T) *wired {
	t.Helper()
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())

	opts := Options{Logger: logger.Nop()}
	b, err := Open(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	app, err := NewApp(cfg, b, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	seedOpts := seed.DefaultOptions()
	seedOpts.Location = cfg.App.Location
	res, err := seed.Load(context.Background(), b.Seed, b.Store, seedOpts, nil)
	require.NoError(t, err)

	return &wired{opts: opts, backend: b, app: app, seeded: res}
}

func TestApp_ScanInvalidatesForecastAndAudits(t *testing.T) {
	w := newWired(t)
	ctx := context.Background()

	first, err := w.app.GetForecast.Handle(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Contains(t, first.Events, "Tech Fest")

	second, err := w.app.GetForecast.Handle(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	newest := w.seeded.Events[len(w.seeded.Events)-1]
	res, err := w.app.Recorder.ScanIn(ctx, command.ScanCommand{
		Actor:             w.seeded.SuperAdmin,
		EventID:           newest.ID,
		StudentIdentifier: "2024-00055",
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.ScanJoined, res.Status)

	third, err := w.app.GetForecast.Handle(ctx)
	require.NoError(t, err)
	assert.False(t, third.Cached, "a recorded scan advances the cache generation")

	audit, ok := w.backend.Audit.(*memory.AuditRepository)
	require.True(t, ok)
	assert.Eventually(t, func() bool { return len(audit.Entries()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestApp_ManagerScopedToAssignedEvent(t *testing.T) {
	w := newWired(t)
	ctx := context.Background()

	oldest := w.seeded.Events[0]
	_, err := w.app.Recorder.ScanIn(ctx, command.ScanCommand{
		Actor:             w.seeded.Manager,
		EventID:           oldest.ID,
		StudentIdentifier: "2024-00055",
	})
	assert.Error(t, err)
}

func TestNewScheduler_RegistersJobs(t *testing.T) {
	w := newWired(t)
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())

	s, err := NewScheduler(cfg, w.backend, w.app, w.opts)
	require.NoError(t, err)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "prune_audit", jobs[0].Name)
	assert.Equal(t, "warm_forecast", jobs[1].Name)

	res, err := s.RunNow(context.Background(), "warm_forecast")
	require.NoError(t, err)
	assert.NoError(t, res.Error)

	report, err := w.app.GetForecast.Handle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Cached)
}

func TestNewScheduler_BadPruneSchedule(t *testing.T) {
	w := newWired(t)
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())
	cfg.Scheduler.PruneAuditSchedule = "61 * * * *"

	_, err := NewScheduler(cfg, w.backend, w.app, w.opts)
	assert.Error(t, err)
}
