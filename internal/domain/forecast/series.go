package forecast

import (
	"context"
	"sort"
	"time"
)

// Record is one row of the participation/event join. EventTitle is empty
// when the participation's event no longer resolves.
type Record struct {
	EventTitle string
	TimeIn     time.Time
}

// SnapshotSource loads the join the engine consumes. Implementations read
// it once per call.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]Record, error)
}

// YearlySeries is the attendance count of one base event per calendar year.
// Years is ascending and Counts is aligned with it.
type YearlySeries struct {
	BaseName string
	Years    []int
	Counts   []int
}

// Grouping is the output of Group.
type Grouping struct {
	// Series keyed by base event name.
	Series map[string]*YearlySeries

	// Skipped counts records without a resolvable event or with a zero TimeIn.
	Skipped int
}

// Names returns the series names in lexical order.
func (g *Grouping) Names() []string {
	names := make([]string, 0, len(g.Series))
	for name := range g.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group buckets records by (BaseName(title), year of TimeIn in loc).
// Unusable records are counted in Skipped and never fail the grouping.
func Group(records []Record, loc *time.Location) *Grouping {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]map[int]int)
	skipped := 0
	for _, r := range records {
		if r.EventTitle == "" || r.TimeIn.IsZero() {
			skipped++
			continue
		}
		name := BaseName(r.EventTitle)
		years, ok := buckets[name]
		if !ok {
			years = make(map[int]int)
			buckets[name] = years
		}
		years[r.TimeIn.In(loc).Year()]++
	}

	g := &Grouping{Series: make(map[string]*YearlySeries, len(buckets)), Skipped: skipped}
	for name, years := range buckets {
		s := &YearlySeries{BaseName: name, Years: make([]int, 0, len(years))}
		for y := range years {
			s.Years = append(s.Years, y)
		}
		sort.Ints(s.Years)
		s.Counts = make([]int, len(s.Years))
		for i, y := range s.Years {
			s.Counts[i] = years[y]
		}
		g.Series[name] = s
	}
	return g
}
