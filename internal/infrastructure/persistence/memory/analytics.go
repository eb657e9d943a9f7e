package memory

import (
	"context"
	"sort"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/forecast"
)

// Analytics joins the directory with the participation store. It implements
// forecast.SnapshotSource and attendance.StatsReader.
type Analytics struct {
	dir   *Directory
	store *ParticipationStore
}

// NewAnalytics creates the read model.
func NewAnalytics(dir *Directory, store *ParticipationStore) *Analytics {
	return &Analytics{dir: dir, store: store}
}

// Snapshot implements forecast.SnapshotSource. Participations whose event no
// longer exists carry an empty title.
func (a *Analytics) Snapshot(ctx context.Context) ([]forecast.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := a.store.All()
	out := make([]forecast.Record, 0, len(rows))
	for _, p := range rows {
		title, _ := a.dir.title(p.EventID)
		out = append(out, forecast.Record{EventTitle: title, TimeIn: p.TimeIn})
	}
	return out, nil
}

// DashboardStats implements attendance.StatsReader. Only titles with at
// least one participation appear in the chart.
func (a *Analytics) DashboardStats(ctx context.Context) (*attendance.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := a.dir.Events()
	totals := make(map[string]int64, len(events))
	rows := a.store.All()
	for _, p := range rows {
		if title, ok := a.dir.title(p.EventID); ok {
			totals[title]++
		}
	}

	chart := make([]attendance.EventPopularity, 0, len(totals))
	for title, n := range totals {
		chart = append(chart, attendance.EventPopularity{Title: title, Total: n})
	}
	sort.Slice(chart, func(i, j int) bool {
		if chart[i].Total == chart[j].Total {
			return chart[i].Title < chart[j].Title
		}
		return chart[i].Total > chart[j].Total
	})

	return &attendance.DashboardStats{
		Counts: attendance.DashboardCounts{
			Students:       int64(a.dir.StudentCount()),
			Events:         int64(len(events)),
			Participations: int64(len(rows)),
		},
		ChartData: chart,
	}, nil
}
