package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires at a fixed interval.
type IntervalSchedule struct {
	interval time.Duration
}

// Every returns a schedule firing every d. Intervals under a second are
// rounded up to a second, the scheduler's tick resolution.
func Every(d time.Duration) *IntervalSchedule {
	if d < time.Second {
		d = time.Second
	}
	return &IntervalSchedule{interval: d}
}

// Next implements Schedule.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

// String implements Schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("every %s", s.interval)
}

// DailySchedule fires once a day at a fixed wall-clock time.
type DailySchedule struct {
	hour   int
	minute int
}

// DailyAt returns a schedule firing daily at hour:minute in the scheduler's
// timezone. The streak sweep runs this way, shortly after the grace window
// closes.
func DailyAt(hour, minute int) *DailySchedule {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return &DailySchedule{hour: hour, minute: minute}
}

// Next implements Schedule.
func (s *DailySchedule) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.hour, s.minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String implements Schedule.
func (s *DailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}
