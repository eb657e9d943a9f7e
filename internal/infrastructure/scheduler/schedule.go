package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParseSchedule accepts either "@every <duration>" or a five-field cron
// expression (minute hour day-of-month month day-of-week).
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", rest, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive: %s", d)
		}
		return Every(d), nil
	}
	return ParseCron(spec)
}

// ─── Interval ───────────────────────────────────────────────────────────────

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

func (s *IntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.Interval) }

func (s *IntervalSchedule) String() string { return "@every " + s.Interval.String() }

// ─── Cron ───────────────────────────────────────────────────────────────────

// CronSchedule is a parsed cron expression. Supported field syntax:
// *, */n, n, n-m, n-m/s and comma lists of those.
//
//	"*/5 * * * *"  every 5 minutes
//	"30 3 * * *"   every day at 03:30
//	"0 0 * * 0"    every Sunday at midnight
type CronSchedule struct {
	raw      string
	minutes  []int
	hours    []int
	days     []int
	months   []int
	weekdays []int // 0 = Sunday
}

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	cs := &CronSchedule{raw: strings.Join(fields, " ")}
	specs := []struct {
		name     string
		dst      *[]int
		min, max int
	}{
		{"minute", &cs.minutes, 0, 59},
		{"hour", &cs.hours, 0, 23},
		{"day", &cs.days, 1, 31},
		{"month", &cs.months, 1, 12},
		{"weekday", &cs.weekdays, 0, 6},
	}
	for i, f := range specs {
		values, err := parseCronField(fields[i], f.min, f.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", f.name, err)
		}
		*f.dst = values
	}
	return cs, nil
}

// MustParseCron panics on an invalid expression.
func MustParseCron(expr string) *CronSchedule {
	cs, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return cs
}

func parseCronField(field string, min, max int) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		if err := expandCronPart(part, min, max, seen); err != nil {
			return nil, err
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no values in %q", field)
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

func expandCronPart(part string, min, max int, seen map[int]bool) error {
	step := 1
	if base, s, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step %q", s)
		}
		step, part = n, base
	}

	start, end := min, max
	switch {
	case part == "*":
	case strings.Contains(part, "-"):
		lo, hi, _ := strings.Cut(part, "-")
		var err error
		if start, err = strconv.Atoi(lo); err != nil {
			return fmt.Errorf("invalid range start %q", lo)
		}
		if end, err = strconv.Atoi(hi); err != nil {
			return fmt.Errorf("invalid range end %q", hi)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid value %q", part)
		}
		start = v
		if step == 1 {
			end = v
		}
	}

	if start < min || end > max || start > end {
		return fmt.Errorf("%q out of range [%d-%d]", part, min, max)
	}
	for v := start; v <= end; v += step {
		seen[v] = true
	}
	return nil
}

// Next returns the first matching minute strictly after t, or the zero
// time when nothing matches within a year.
func (cs *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	const limit = 366 * 24 * 60
	for i := 0; i < limit; i++ {
		if cs.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

func (cs *CronSchedule) matches(t time.Time) bool {
	return has(cs.minutes, t.Minute()) &&
		has(cs.hours, t.Hour()) &&
		has(cs.days, t.Day()) &&
		has(cs.months, int(t.Month())) &&
		has(cs.weekdays, int(t.Weekday()))
}

func has(values []int, v int) bool {
	i := sort.SearchInts(values, v)
	return i < len(values) && values[i] == v
}

func (cs *CronSchedule) String() string { return cs.raw }
