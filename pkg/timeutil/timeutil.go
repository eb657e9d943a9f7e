// Package timeutil provides the campus clock and timezone helpers used by
// attendance scans and yearly analytics bucketing.
package timeutil

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ManilaTZ is the default campus timezone (UTC+8, no DST).
var ManilaTZ = time.FixedZone("Asia/Manila", 8*60*60)

// LoadLocation resolves an IANA zone name. "Asia/Manila" and an empty name
// resolve to ManilaTZ even when the host has no tzdata installed.
func LoadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Asia/Manila":
		return ManilaTZ, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return loc, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ═══════════════════════════════════════════════════════════════════════════════

// Clock supplies the current time. Scan handlers and forecast queries take a
// Clock so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// FormatDateTimeSeconds is the layout admins enter timestamps in.
const FormatDateTimeSeconds = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	FormatDateTimeSeconds,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an admin-entered timestamp. RFC3339 values keep their
// offset; offset-less layouts are interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("timeutil: empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timeutil: unrecognized timestamp %q (want %q or RFC3339)", value, FormatDateTimeSeconds)
}
