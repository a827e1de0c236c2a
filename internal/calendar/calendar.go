// Package calendar is the single authority for "today" and for day arithmetic.
// Every calendar day in the system is a YYYY-MM-DD string computed in one
// configured timezone.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"
	_ "time/tzdata"
)

// DayLayout is the format of a calendar day string.
const DayLayout = "2006-01-02"

// DefaultZone is used when no timezone is configured.
const DefaultZone = "America/Chicago"

// ErrClockUnavailable is returned when the current day cannot be determined.
var ErrClockUnavailable = errors.New("calendar: clock unavailable")

// Authority computes calendar days in a fixed timezone.
type Authority struct {
	loc *time.Location
	now func() time.Time
}

// New creates an Authority for the named IANA zone
func New(zone string) (*Authority, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return &Authority{loc: loc, now: time.Now}, nil
}

// WithClock replaces the time source. Intended for tests and tooling.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	return &Authority{loc: a.loc, now: now}
}

// Location returns the configured timezone.
func (a *Authority) Location() *time.Location {
	return a.loc
}

// Today returns the current date in the configured zone, formatted YYYY-MM-DD.
func (a *Authority) Today() (string, error) {
	if a == nil || a.loc == nil || a.now == nil {
		return "", ErrClockUnavailable
	}
	now := a.now()
	if now.IsZero() {
		return "", ErrClockUnavailable
	}
	return now.In(a.loc).Format(DayLayout), nil
}

// DayOf formats t as a calendar day in the configured zone.
func (a *Authority) DayOf(t time.Time) string {
	return t.In(a.loc).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string into midnight UTC of that date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar day %q: %w", s, err)
	}
	return t, nil
}

// ValidDay reports whether s is a well-formed calendar day.
func ValidDay(s string) bool {
	_, err := ParseDay(s)
	return err == nil
}

// DayDiff returns the signed number of whole days from prev to curr.
// Both dates are taken as UTC midnight so DST transitions in the configured
// zone cannot skew the result. ok is false when either day is absent or malformed.
func DayDiff(prev, curr string) (days int, ok bool) {
	if prev == "" || curr == "" {
		return 0, false
	}
	p, err := ParseDay(prev)
	if err != nil {
		return 0, false
	}
	c, err := ParseDay(curr)
	if err != nil {
		return 0, false
	}
	ms := c.Sub(p).Milliseconds()
	return int(math.Round(float64(ms) / 86_400_000)), true
}

// DayDiff is a method form of the package-level DayDiff so callers can route
// all date comparisons through the Authority.
func (a *Authority) DayDiff(prev, curr string) (int, bool) {
	return DayDiff(prev, curr)
}
