// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
	"github.com/linguaquest/gamification-engine/pkg/retry"
	"github.com/linguaquest/gamification-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY EVENT COMMAND
// The single entry point for learning activity: one event in, XP, streak and
// badge effects out, persisted as one atomic versioned write.
// ══════════════════════════════════════════════════════════════════════════════

// CacheInvalidator drops a cached profile after a successful write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// ActivityNotifier receives engine events after a successful commit, e.g. the
// Redis activity feed. Delivery failures never affect the committed update.
type ActivityNotifier interface {
	Notify(event shared.Event) error
}

// ApplyEventResult describes everything one event changed.
type ApplyEventResult struct {
	// Profile is the committed post-update state.
	Profile *profile.Profile

	// XPAwarded is the XP granted for this event, including any milestone
	// bonus.
	XPAwarded int

	// OldLevel and NewLevel bracket the update.
	OldLevel progression.Level
	NewLevel progression.Level

	// LeveledUp is true when NewLevel > OldLevel.
	LeveledUp bool

	// Streak describes the streak transition, zero-valued for events that do
	// not count toward the streak.
	Streak streak.Result

	// UnlockedBadges lists badges newly awarded by this event.
	UnlockedBadges []badge.Unlock
}

// ApplyEventHandler coordinates one activity event across the XP calculator,
// the streak machine, and the badge engine.
//
// Concurrency: the handler loads the profile, computes every effect on the
// in-memory copy, and persists with a compare-and-set on the profile version.
// A concurrent writer surfaces as an optimistic-lock failure and the whole
// read-compute-write cycle is retried from a fresh load, so no award is ever
// computed against stale state.
type ApplyEventHandler struct {
	profiles     profile.Repository
	progress     badge.ProgressRepository
	calculator   *progression.Calculator
	curve        *progression.Curve
	streaks      *streak.Machine
	badges       *badge.Engine
	publisher    shared.EventPublisher
	notifier     ActivityNotifier
	cache        CacheInvalidator
	logger       *slog.Logger
	retrier      *retry.Retrier
	longSession  time.Duration
	earlyBirdEnd int
	nightOwlEnd  int
}

// ApplyEventConfig contains handler tunables.
type ApplyEventConfig struct {
	// MaxConflictRetries bounds the read-compute-write attempts.
	MaxConflictRetries int

	// LongSessionThreshold is the duration that qualifies as a long study
	// session.
	LongSessionThreshold time.Duration

	// EarlyBirdEndHour: local activity before this hour (and at or past
	// NightOwlEndHour) counts as early-bird practice.
	EarlyBirdEndHour int

	// NightOwlEndHour: local activity before this hour counts as night-owl
	// practice.
	NightOwlEndHour int
}

// DefaultApplyEventConfig returns production defaults.
func DefaultApplyEventConfig() ApplyEventConfig {
	return ApplyEventConfig{
		MaxConflictRetries:   5,
		LongSessionThreshold: time.Hour,
		EarlyBirdEndHour:     7,
		NightOwlEndHour:      4,
	}
}

// NewApplyEventHandler creates the coordinator. notifier and cache may be nil.
func NewApplyEventHandler(
	profiles profile.Repository,
	progress badge.ProgressRepository,
	calculator *progression.Calculator,
	curve *progression.Curve,
	streaks *streak.Machine,
	badges *badge.Engine,
	publisher shared.EventPublisher,
	notifier ActivityNotifier,
	cache CacheInvalidator,
	logger *slog.Logger,
	cfg ApplyEventConfig,
) *ApplyEventHandler {
	if cfg.MaxConflictRetries <= 0 {
		cfg = DefaultApplyEventConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &ApplyEventHandler{
		profiles:     profiles,
		progress:     progress,
		calculator:   calculator,
		curve:        curve,
		streaks:      streaks,
		badges:       badges,
		publisher:    publisher,
		notifier:     notifier,
		cache:        cache,
		logger:       logger,
		longSession:  cfg.LongSessionThreshold,
		earlyBirdEnd: cfg.EarlyBirdEndHour,
		nightOwlEnd:  cfg.NightOwlEndHour,
	}
	h.retrier = retry.New(
		retry.WithMaxAttempts(cfg.MaxConflictRetries),
		retry.WithInitialDelay(20*time.Millisecond),
		retry.WithMaxDelay(250*time.Millisecond),
		retry.WithJitter(0.3),
		retry.WithRetryIf(shared.IsConflict),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Debug("apply_event: version conflict, retrying",
				"attempt", attempt, "delay", delay.String())
		}),
	)
	return h
}

// Handle applies one activity event.
func (h *ApplyEventHandler) Handle(ctx context.Context, event shared.DomainEvent) (*ApplyEventResult, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("apply_event: %w", err)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	var (
		result *ApplyEventResult
		emits  []shared.Event
	)

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		r, events, err := h.attempt(ctx, event)
		if err != nil {
			return err
		}
		result, emits = r, events
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.ErrConflictRetriesExhausted
		}
		return nil, err
	}

	h.afterCommit(ctx, event.UserID, emits)

	h.logger.Info("event applied",
		"user_id", event.UserID,
		"event_type", event.Type,
		"xp_awarded", result.XPAwarded,
		"level", int(result.NewLevel),
		"streak", result.Profile.StreakCount,
		"badges_unlocked", len(result.UnlockedBadges),
	)
	return result, nil
}

// attempt is one full read-compute-write cycle.
func (h *ApplyEventHandler) attempt(ctx context.Context, event shared.DomainEvent) (*ApplyEventResult, []shared.Event, error) {
	p, err := h.profiles.Get(ctx, event.UserID)
	if err != nil {
		return nil, nil, err
	}
	progressMap, err := h.progress.ListForUser(ctx, event.UserID)
	if err != nil {
		return nil, nil, err
	}

	now := event.OccurredAt
	result := &ApplyEventResult{OldLevel: p.Level}
	var emits []shared.Event

	// 1. Streak transition: genuine study activity moves the state machine.
	if event.Type.CountsForStreak() {
		sr := h.streaks.Update(p.LastActiveDate, now, p.StreakCount, p.FreezeTokens, p.Location())
		result.Streak = sr

		if sr.FreezeConsumed {
			p.FreezeTokens--
		}
		switch sr.Outcome {
		case streak.OutcomeUnchanged:
			if now.After(p.LastActiveDate) {
				p.LastActiveDate = now
			}
		default:
			p.RecordStreak(sr.NewStreak, now)
		}
		if sr.FreezeTokenGranted {
			p.FreezeTokens = h.streaks.GrantTokens(p.FreezeTokens, 1)
		}
		if sr.Milestone > 0 {
			granted := 0
			if sr.FreezeTokenGranted {
				granted = 1
			}
			emits = append(emits, shared.NewStreakMilestoneEvent(event.UserID, sr.Milestone, sr.NewStreak, granted))
		}
	}

	// 2. XP award against the post-transition streak.
	awarded, err := h.awardXP(event, p.StreakCount, result.Streak.Milestone)
	if err != nil {
		return nil, nil, err
	}
	result.XPAwarded = awarded
	oldLevel, newLevel := p.AddXP(awarded, h.curve)
	result.OldLevel, result.NewLevel = oldLevel, newLevel
	result.LeveledUp = newLevel > oldLevel
	if awarded > 0 {
		emits = append(emits, shared.NewXPAwardedEvent(event.UserID, awarded, p.XP.Int(), event.Type))
	}
	if result.LeveledUp {
		emits = append(emits, shared.NewLevelReachedEvent(event.UserID, int(oldLevel), int(newLevel), p.XP.Int()))
	}

	// 3. Badge evaluation: the event itself plus everything it implies.
	held := p.AwardSet()
	var updated []*badge.Progress
	for _, ev := range h.expand(event, result, p) {
		eval := h.badges.CheckAndAward(event.UserID, ev, held, progressMap, now)
		for _, pr := range eval.Updated {
			progressMap[pr.BadgeID] = pr
			updated = append(updated, pr)
		}
		for _, unlock := range eval.NewAwards {
			if p.GrantBadge(unlock.Award) {
				held[unlock.Award.BadgeID] = unlock.Award
				result.UnlockedBadges = append(result.UnlockedBadges, unlock)
				emits = append(emits, shared.NewBadgeUnlockedEvent(
					event.UserID, unlock.Definition.ID, unlock.Definition.Title, string(unlock.Definition.Rarity)))
			}
		}
	}

	// 4. One atomic CAS write covering profile and moved counters.
	p.UpdatedAt = time.Now().UTC()
	if err := h.profiles.Save(ctx, p, updated); err != nil {
		return nil, nil, err
	}

	result.Profile = p
	return result, emits, nil
}

// awardXP maps an event to its XP award. Signal events that carry no study
// work of their own award nothing.
func (h *ApplyEventHandler) awardXP(event shared.DomainEvent, streakCount, milestone int) (int, error) {
	var activity progression.ActivityType
	switch event.Type {
	case shared.EventLessonCompleted:
		activity = progression.ActivityLesson
	case shared.EventQuizCompleted:
		activity = progression.ActivityQuiz
	case shared.EventPronunciationPractice:
		activity = progression.ActivityPronunciation
	default:
		return 0, nil
	}

	awarded, err := h.calculator.Award(progression.AwardInput{
		Activity:      activity,
		Difficulty:    event.Payload.Difficulty,
		Accuracy:      event.Payload.Accuracy,
		Duration:      event.Payload.Duration,
		QuestionCount: event.Payload.QuestionCount,
		StreakCount:   streakCount,
	})
	if err != nil {
		return 0, err
	}

	// The milestone bonus is flat: the main award above already carries the
	// streak ladder, so the bonus input deliberately omits the streak count.
	if milestone > 0 {
		bonus, err := h.calculator.Award(progression.AwardInput{
			Activity: progression.ActivityStreakBonus,
		})
		if err != nil {
			return 0, err
		}
		awarded += bonus
	}
	return awarded, nil
}

// expand returns the incoming event plus the derived events it implies, in
// evaluation order. Derived events let one lesson completion drive streak,
// level and time-of-day criteria without the client knowing any of them exist.
func (h *ApplyEventHandler) expand(event shared.DomainEvent, result *ApplyEventResult, p *profile.Profile) []shared.DomainEvent {
	events := []shared.DomainEvent{event}

	derive := func(t shared.EventType, payload shared.EventPayload) {
		events = append(events, shared.DomainEvent{
			ID:         event.ID + ":" + string(t),
			Type:       t,
			UserID:     event.UserID,
			OccurredAt: event.OccurredAt,
			Payload:    payload,
		})
	}

	if event.Type == shared.EventLessonCompleted {
		derive(shared.EventFirstLesson, shared.EventPayload{})
	}
	if event.Payload.Accuracy >= 1.0 && event.Type == shared.EventQuizCompleted {
		derive(shared.EventPerfectScore, shared.EventPayload{ActivityID: event.Payload.ActivityID})
	}
	if h.longSession > 0 && event.Payload.Duration >= h.longSession {
		derive(shared.EventLongStudySession, shared.EventPayload{Duration: event.Payload.Duration})
	}

	switch result.Streak.Outcome {
	case streak.OutcomeStarted, streak.OutcomeExtended, streak.OutcomeReset:
		derive(shared.EventStreakExtended, shared.EventPayload{StreakLength: result.Streak.NewStreak})
	}

	if result.LeveledUp {
		derive(shared.EventLevelUp, shared.EventPayload{MilestoneValue: int(result.NewLevel)})
	}

	if event.Type.CountsForStreak() {
		hour := timeutil.HourOfDay(event.OccurredAt, p.Location())
		switch {
		case hour < h.nightOwlEnd:
			derive(shared.EventNightOwl, shared.EventPayload{})
		case hour < h.earlyBirdEnd:
			derive(shared.EventEarlyBird, shared.EventPayload{})
		}
	}

	return events
}

// afterCommit runs the post-write side effects: cache invalidation, bus
// publication, activity-feed delivery. None of them can fail the update.
func (h *ApplyEventHandler) afterCommit(ctx context.Context, userID string, emits []shared.Event) {
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, userID); err != nil {
			h.logger.Warn("apply_event: cache invalidation failed", "user_id", userID, "error", err)
		}
	}
	for _, ev := range emits {
		if h.publisher != nil {
			if err := h.publisher.Publish(ev); err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("apply_event: publish failed", "event_type", ev.EventType(), "error", err)
			}
		}
		if h.notifier != nil {
			if err := h.notifier.Notify(ev); err != nil {
				h.logger.Warn("apply_event: notify failed", "event_type", ev.EventType(), "error", err)
			}
		}
	}
}
