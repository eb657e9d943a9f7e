package query

import (
	"context"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

// GetDashboardStatsHandler returns headline counts and per-title totals.
type GetDashboardStatsHandler struct {
	stats attendance.StatsReader
}

// NewGetDashboardStatsHandler creates a new GetDashboardStatsHandler.
func NewGetDashboardStatsHandler(stats attendance.StatsReader) *GetDashboardStatsHandler {
	return &GetDashboardStatsHandler{stats: stats}
}

// Handle executes the query.
func (h *GetDashboardStatsHandler) Handle(ctx context.Context) (*attendance.DashboardStats, error) {
	s, err := h.stats.DashboardStats(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetDashboardStats", shared.ErrServiceUnavailable, "failed to load dashboard stats", err)
	}
	if s.ChartData == nil {
		s.ChartData = []attendance.EventPopularity{}
	}
	return s, nil
}
