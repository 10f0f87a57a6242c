package domain

import (
	"fmt"
	"time"
)

// CutoffPolicy decides whether ordering is still open for a given date.
// Lock rules:
//   - a date before today is always locked
//   - today locks once the time of day in the policy's location passes the
//     configured cutoff
//   - a future date is never locked
//
// IsLocked is pure: the same (target, now) pair always yields the same answer.
type CutoffPolicy struct {
	cutoffSeconds int
	loc           *time.Location
}

// NewCutoffPolicy parses a "HH:MM:SS" cutoff. loc is the calendar the service
// operates in; nil means UTC.
func NewCutoffPolicy(cutoff string, loc *time.Location) (CutoffPolicy, error) {
	if loc == nil {
		loc = time.UTC
	}

	t, err := time.Parse("15:04:05", cutoff)
	if err != nil {
		return CutoffPolicy{}, fmt.Errorf("invalid cutoff time %q: %w", cutoff, err)
	}

	return CutoffPolicy{
		cutoffSeconds: t.Hour()*3600 + t.Minute()*60 + t.Second(),
		loc:           loc,
	}, nil
}

func (p CutoffPolicy) IsLocked(target, now time.Time) bool {
	t := DateOnly(target)
	today := p.Today(now)

	if t.Before(today) {
		return true
	}
	if !t.Equal(today) {
		return false
	}

	local := now.In(p.loc)
	elapsed := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return elapsed > p.cutoffSeconds
}

// Today returns the calendar date of now in the policy's location, as a
// date-only value at midnight UTC so it compares cleanly with order dates.
func (p CutoffPolicy) Today(now time.Time) time.Time {
	local := now.In(p.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// NextCutoff returns the next instant the cutoff occurs in the policy's
// location, used to schedule the daily confirmation sweep.
func (p CutoffPolicy) NextCutoff(now time.Time) time.Time {
	local := now.In(p.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc).
		Add(time.Duration(p.cutoffSeconds) * time.Second)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ParseDateOnly parses "YYYY-MM-DD" into midnight UTC.
func ParseDateOnly(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// DateOnly truncates t to its UTC calendar date at midnight.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
