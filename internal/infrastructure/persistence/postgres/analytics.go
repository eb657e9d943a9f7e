package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/forecast"
)

// Analytics implements forecast.SnapshotSource and attendance.StatsReader.
type Analytics struct {
	conn *Connection
}

// NewAnalytics creates a new Analytics.
func NewAnalytics(conn *Connection) *Analytics {
	return &Analytics{conn: conn}
}

// Snapshot implements forecast.SnapshotSource. Participations whose event is
// gone come back with an empty title.
func (a *Analytics) Snapshot(ctx context.Context) ([]forecast.Record, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT COALESCE(e.title, ''), p.time_in
		FROM participations p
		LEFT JOIN events e ON e.id = p.event_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load attendance snapshot: %w", err)
	}
	defer rows.Close()

	var out []forecast.Record
	for rows.Next() {
		var (
			r      forecast.Record
			timeIn *time.Time
		)
		if err := rows.Scan(&r.EventTitle, &timeIn); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if timeIn != nil {
			r.TimeIn = *timeIn
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DashboardStats implements attendance.StatsReader. Both queries run in one
// read-only transaction so the counts and the chart agree.
func (a *Analytics) DashboardStats(ctx context.Context) (*attendance.DashboardStats, error) {
	stats := &attendance.DashboardStats{ChartData: []attendance.EventPopularity{}}

	err := a.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT (SELECT count(*) FROM students),
			       (SELECT count(*) FROM events),
			       (SELECT count(*) FROM participations)
		`).Scan(&stats.Counts.Students, &stats.Counts.Events, &stats.Counts.Participations)
		if err != nil {
			return fmt.Errorf("count tables: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT e.title, count(*) AS total
			FROM participations p
			JOIN events e ON e.id = p.event_id
			GROUP BY e.title
			ORDER BY total DESC, e.title
		`)
		if err != nil {
			return fmt.Errorf("event popularity: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p attendance.EventPopularity
			if err := rows.Scan(&p.Title, &p.Total); err != nil {
				return err
			}
			stats.ChartData = append(stats.ChartData, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
