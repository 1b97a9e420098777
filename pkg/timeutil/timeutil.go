// Package timeutil provides timezone-aware calendar helpers. Streak
// decisions are made over local calendar days in the user's timezone, so
// every boundary computation goes through this package.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// LoadLocation resolves an IANA timezone name, falling back to UTC for an
// empty name. Unknown names return an error.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time, loc *time.Location) bool {
	la, lb := a.In(loc), b.In(loc)
	return la.Year() == lb.Year() && la.Month() == lb.Month() && la.Day() == lb.Day()
}

// DaysBetween returns the number of local calendar-day boundaries crossed
// between a and b. Same day yields 0, the next day 1, and so on. The result
// is negative when b precedes a.
//
// The local dates are re-anchored in UTC before subtracting: local midnights
// are not a fixed 24h apart across DST transitions, and dividing by 24 would
// miscount the short and long days of the year.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	la, lb := a.In(loc), b.In(loc)
	start := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(lb.Year(), lb.Month(), lb.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// IsYesterday reports whether t falls on the local day before ref.
func IsYesterday(t, ref time.Time, loc *time.Location) bool {
	return DaysBetween(t, ref, loc) == 1
}

// StartOfWeek returns local Monday midnight of the week containing t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(local.AddDate(0, 0, -(weekday-1)), loc)
}

// HourOfDay returns the local hour of t, for time-of-day badge criteria
// (early bird, night owl).
func HourOfDay(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}
