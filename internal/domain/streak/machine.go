// Package streak implements the daily-streak state machine: deriving a new
// streak length from calendar-day transitions, grace-period and freeze-token
// coverage for missed days, and milestone detection.
//
// All decisions are made over local calendar days in the user's timezone.
// The machine is pure; the coordinator owns persistence.
package streak

import (
	"time"

	"github.com/linguaquest/gamification-engine/pkg/timeutil"
)

// Config holds the streak tunables.
type Config struct {
	// GracePeriod extends the midnight deadline: activity within this window
	// past local midnight still counts for the previous day.
	GracePeriod time.Duration

	// Milestones are the streak lengths that emit a milestone event,
	// ascending.
	Milestones []int

	// FreezeGrantMinMilestone is the smallest milestone that grants a
	// freeze token.
	FreezeGrantMinMilestone int

	// MaxFreezeTokens caps the freeze-token balance. Grants past the cap
	// are a no-op.
	MaxFreezeTokens int

	// InitialFreezeTokens is the balance a new profile starts with.
	InitialFreezeTokens int
}

// DefaultConfig returns the production streak tunables.
func DefaultConfig() Config {
	return Config{
		GracePeriod:             4 * time.Hour,
		Milestones:              []int{3, 7, 14, 30, 60, 100, 365},
		FreezeGrantMinMilestone: 7,
		MaxFreezeTokens:         5,
		InitialFreezeTokens:     3,
	}
}

// Outcome classifies a streak transition.
type Outcome string

const (
	// OutcomeUnchanged - same calendar day, idempotent re-entry.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeStarted - first ever activity.
	OutcomeStarted Outcome = "started"

	// OutcomeExtended - consecutive day (or a gap covered by grace/freeze).
	OutcomeExtended Outcome = "extended"

	// OutcomeReset - uncovered gap, streak restarts at 1.
	OutcomeReset Outcome = "reset"
)

// Result describes one streak transition.
type Result struct {
	// NewStreak is the derived streak length.
	NewStreak int

	// Outcome classifies the transition.
	Outcome Outcome

	// FreezeConsumed is true when a freeze token covered the gap.
	FreezeConsumed bool

	// Milestone is the milestone crossed by this transition, 0 if none.
	Milestone int

	// FreezeTokenGranted is true when the crossed milestone grants a token
	// (the grant itself is applied by the caller, capped at the balance max).
	FreezeTokenGranted bool
}

// Machine derives streak transitions.
type Machine struct {
	cfg Config
}

// NewMachine creates a Machine with the given config.
func NewMachine(cfg Config) *Machine {
	if len(cfg.Milestones) == 0 {
		cfg = DefaultConfig()
	}
	return &Machine{cfg: cfg}
}

// Config returns the machine's tunables.
func (m *Machine) Config() Config { return m.cfg }

// Update derives the new streak from (lastActive, activityAt, currentStreak).
// lastActive is the zero time for a user's first ever activity.
// freezeTokens is the user's available balance; a token is consumed (see
// Result.FreezeConsumed) only when it is the thing covering a gap.
func (m *Machine) Update(lastActive, activityAt time.Time, currentStreak, freezeTokens int, loc *time.Location) Result {
	if lastActive.IsZero() {
		return m.finish(Result{NewStreak: 1, Outcome: OutcomeStarted}, currentStreak)
	}

	gap := timeutil.DaysBetween(lastActive, activityAt, loc)
	switch {
	case gap <= 0:
		// Same day, or an out-of-order event from a lagging device.
		return Result{NewStreak: currentStreak, Outcome: OutcomeUnchanged}
	case gap == 1:
		return m.finish(Result{NewStreak: currentStreak + 1, Outcome: OutcomeExtended}, currentStreak)
	default:
		if m.IsWithinGracePeriod(lastActive, activityAt, loc) {
			return m.finish(Result{NewStreak: currentStreak + 1, Outcome: OutcomeExtended}, currentStreak)
		}
		if freezeTokens > 0 && gap == 2 {
			// One missed day covered by a freeze: the streak survives and
			// today's activity still extends it.
			return m.finish(Result{NewStreak: currentStreak + 1, Outcome: OutcomeExtended, FreezeConsumed: true}, currentStreak)
		}
		return m.finish(Result{NewStreak: 1, Outcome: OutcomeReset}, currentStreak)
	}
}

// finish stamps milestone information onto a transition result.
func (m *Machine) finish(r Result, previousStreak int) Result {
	if r.NewStreak <= previousStreak {
		return r
	}
	for _, milestone := range m.cfg.Milestones {
		if r.NewStreak == milestone {
			r.Milestone = milestone
			r.FreezeTokenGranted = milestone >= m.cfg.FreezeGrantMinMilestone
			break
		}
	}
	return r
}

// NextDeadline returns the instant by which the next qualifying activity must
// happen to keep the streak: local midnight at the end of the day after
// lastActive, extended by the grace period. Reminder scheduling consumes this.
func (m *Machine) NextDeadline(lastActive time.Time, loc *time.Location) time.Time {
	return timeutil.StartOfDay(lastActive, loc).AddDate(0, 0, 2).Add(m.cfg.GracePeriod)
}

// IsWithinGracePeriod reports whether now still falls inside the grace window
// for a streak whose last activity was at lastActive. During the window a
// calendar gap of two days is treated as a consecutive day.
func (m *Machine) IsWithinGracePeriod(lastActive, now time.Time, loc *time.Location) bool {
	return now.Before(m.NextDeadline(lastActive, loc))
}

// IsStreakBroken reports whether the streak is past its deadline with no
// activity. The background sweep uses this predicate.
func (m *Machine) IsStreakBroken(lastActive, now time.Time, loc *time.Location) bool {
	if lastActive.IsZero() {
		return false
	}
	return !m.IsWithinGracePeriod(lastActive, now, loc)
}

// GrantTokens applies a capped token grant and returns the new balance.
// Granting past the cap is a no-op, not an error.
func (m *Machine) GrantTokens(balance, grant int) int {
	balance += grant
	if balance > m.cfg.MaxFreezeTokens {
		balance = m.cfg.MaxFreezeTokens
	}
	return balance
}
