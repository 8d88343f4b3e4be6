// Package timeutil provides calendar-date helpers for practice tracking.
//
// Practice dates are civil dates: the wall-clock date a user submitted, with the
// time of day stripped. They are represented as time.Time at 00:00 UTC so that
// subtraction always yields whole days (UTC has no DST transitions).
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for a calendar date.
const DateLayout = "2006-01-02"

// Clock returns the current time. Swappable in tests.
type Clock func() time.Time

// SystemClock is the real wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// DateOf returns the calendar date of t in t's own location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateIn returns the calendar date of t as observed in loc, as midnight UTC.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(t.In(loc))
}

// Date creates a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysDiff returns the signed number of calendar days from a to b.
// It is positive when b is after a.
func DaysDiff(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// IsSameDay checks if two times fall on the same calendar date.
func IsSameDay(a, b time.Time) bool {
	return DaysDiff(a, b) == 0
}

// IsConsecutiveDay checks if b is the day after a.
func IsConsecutiveDay(a, b time.Time) bool {
	return DaysDiff(a, b) == 1
}

// StartOfWeek returns the Monday of the week containing the calendar date of t.
func StartOfWeek(t time.Time) time.Time {
	date := DateOf(t)
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return date.AddDate(0, 0, -(weekday - 1))
}

// WeekRange returns the half-open interval [Monday, next Monday) for the week
// containing now as observed in loc.
func WeekRange(now time.Time, loc *time.Location) (from, to time.Time) {
	from = StartOfWeek(DateIn(now, loc))
	return from, from.AddDate(0, 0, 7)
}

// CalendarWeek returns the week containing the calendar date of date, without
// converting zones.
func CalendarWeek(date time.Time) (from, to time.Time) {
	from = StartOfWeek(date)
	return from, from.AddDate(0, 0, 7)
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// ParseDate accepts either YYYY-MM-DD or an RFC 3339 timestamp.
// A timestamp keeps its offset so the caller's local date and hour survive.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: expected %s or RFC3339", value, DateLayout)
	}
	return t, nil
}

// IsBareDate reports whether value is a YYYY-MM-DD date without a time part.
func IsBareDate(value string) bool {
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// LoadLocation resolves an IANA zone name, treating "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
