// Package profile defines the per-user gamification profile aggregate and
// its repository contract. The profile is created once at onboarding and
// mutated exclusively by the coordinator.
package profile

import (
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/pkg/timeutil"
)

// Profile is the persisted gamification state for one user.
//
// Invariants: Level == curve.LevelFor(XP) always; StreakCount >= 0;
// FreezeTokens within [0, MaxFreezeTokens].
type Profile struct {
	// UserID identifies the owner.
	UserID string `json:"user_id"`

	// XP is the accumulated experience total.
	XP progression.XP `json:"xp"`

	// Level is derived from XP and cached for display queries.
	Level progression.Level `json:"level"`

	// StreakCount is the current consecutive-day streak.
	StreakCount int `json:"streak_count"`

	// BestStreak is the longest streak ever held.
	BestStreak int `json:"best_streak"`

	// LastActiveDate is the instant of the last qualifying activity,
	// zero before the first one.
	LastActiveDate time.Time `json:"last_active_date"`

	// FreezeTokens is the streak-freeze balance.
	FreezeTokens int `json:"freeze_tokens"`

	// Timezone is the user's IANA timezone for calendar-day decisions.
	Timezone string `json:"timezone"`

	// Badges holds the earned awards, at most one per badge ID.
	Badges []badge.Award `json:"badges"`

	// CreatedAt is the onboarding instant.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last successful write.
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic-concurrency counter, incremented on every
	// successful write.
	Version uint64 `json:"version"`
}

// New creates an onboarding profile: zero XP at level 1, no streak, and the
// configured starting freeze-token balance.
func New(userID, timezone string, initialFreezeTokens int, now time.Time) (*Profile, error) {
	if userID == "" {
		return nil, shared.ErrInvalidUserID
	}
	if _, err := timeutil.LoadLocation(timezone); err != nil {
		return nil, shared.WrapError("profile", "New", shared.ErrInvalidInput, "timezone "+timezone, err)
	}
	return &Profile{
		UserID:       userID,
		XP:           0,
		Level:        1,
		FreezeTokens: initialFreezeTokens,
		Timezone:     timezone,
		Badges:       []badge.Award{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Location resolves the profile's timezone, defaulting to UTC when the
// stored name is empty or no longer loadable.
func (p *Profile) Location() *time.Location {
	loc, err := timeutil.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AddXP adds a non-negative award and recomputes the cached level.
// Returns the levels before and after so the caller can detect a level-up.
func (p *Profile) AddXP(amount int, curve *progression.Curve) (oldLevel, newLevel progression.Level) {
	oldLevel = p.Level
	if amount > 0 {
		p.XP = p.XP.Add(amount)
	}
	p.Level = curve.LevelFor(p.XP)
	return oldLevel, p.Level
}

// HasBadge reports whether the badge is already held.
func (p *Profile) HasBadge(badgeID string) bool {
	for _, a := range p.Badges {
		if a.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// AwardSet returns the held awards keyed by badge ID.
func (p *Profile) AwardSet() map[string]badge.Award {
	set := make(map[string]badge.Award, len(p.Badges))
	for _, a := range p.Badges {
		set[a.BadgeID] = a
	}
	return set
}

// GrantBadge appends an award. Re-granting a held badge is an idempotent
// no-op; the award set never holds duplicates.
func (p *Profile) GrantBadge(award badge.Award) bool {
	if p.HasBadge(award.BadgeID) {
		return false
	}
	p.Badges = append(p.Badges, award)
	return true
}

// RecordStreak applies a derived streak count and activity instant,
// maintaining the best-streak high-water mark.
func (p *Profile) RecordStreak(newStreak int, activityAt time.Time) {
	p.StreakCount = newStreak
	if newStreak > p.BestStreak {
		p.BestStreak = newStreak
	}
	p.LastActiveDate = activityAt
}

// UseStreakFreeze consumes one freeze token and back-dates the last-active
// instant to now: the streak count is preserved, deliberately not advanced.
// Fails with ErrInsufficientTokens when the balance is zero.
func (p *Profile) UseStreakFreeze(now time.Time) error {
	if p.FreezeTokens <= 0 {
		return shared.ErrNoFreezeTokens
	}
	p.FreezeTokens--
	p.LastActiveDate = now
	return nil
}

// Validate checks the profile invariants against the curve.
func (p *Profile) Validate(curve *progression.Curve, maxFreezeTokens int) error {
	if p.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if p.Level != curve.LevelFor(p.XP) {
		return shared.ErrLevelMismatch
	}
	if p.StreakCount < 0 {
		return shared.ErrNegativeStreak
	}
	if p.FreezeTokens < 0 || p.FreezeTokens > maxFreezeTokens {
		return shared.NewDomainError("profile", "Validate", shared.ErrValueOutOfRange, "freeze token balance out of range")
	}
	return nil
}
