package command

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
)

// recorder captures everything the handler emits after a commit.
type recorder struct {
	mu          sync.Mutex
	published   []shared.Event
	notified    []shared.Event
	invalidated []string
}

func (r *recorder) Publish(event shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, event)
	return nil
}

func (r *recorder) Notify(event shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, event)
	return nil
}

func (r *recorder) Invalidate(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, userID)
	return nil
}

func (r *recorder) publishedOfType(t shared.EventType) []shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.Event
	for _, ev := range r.published {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	handler  *ApplyEventHandler
	profiles *persistence.ProfileRepository
	rec      *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	catalog, err := badge.NewCatalog(badge.DefaultDefinitions())
	assert.NoError(t, err)

	rec := &recorder{}
	profiles := persistence.NewProfileRepository(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewApplyEventHandler(
		profiles,
		persistence.NewProgressRepository(store),
		progression.NewCalculator(progression.DefaultAwardConfig()),
		progression.NewCurve(progression.DefaultCurveConfig()),
		streak.NewMachine(streak.DefaultConfig()),
		badge.NewEngine(catalog),
		rec,
		rec,
		rec,
		logger,
		DefaultApplyEventConfig(),
	)
	return &fixture{handler: handler, profiles: profiles, rec: rec}
}

func (f *fixture) seed(t *testing.T, mutate func(*profile.Profile)) *profile.Profile {
	t.Helper()
	p, err := profile.New("u1", "UTC", 3, time.Now().UTC())
	assert.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	assert.NoError(t, f.profiles.Create(context.Background(), p))
	return p
}

func lessonEvent(id string, occurredAt time.Time) shared.DomainEvent {
	return shared.DomainEvent{
		ID:         id,
		Type:       shared.EventLessonCompleted,
		UserID:     "u1",
		OccurredAt: occurredAt,
		Payload: shared.EventPayload{
			Difficulty: "beginner",
			Accuracy:   1.0,
			Duration:   5 * time.Minute,
		},
	}
}

func TestApplyEvent_FirstLesson(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	result, err := f.handler.Handle(context.Background(), lessonEvent("e1", now))
	assert.NoError(t, err)

	// Beginner lesson at full accuracy: round(20 * 1 * 1.5) with no streak bonus.
	assert.Equal(t, 30, result.XPAwarded)
	assert.Equal(t, progression.Level(1), result.NewLevel)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.Profile.StreakCount)
	assert.Equal(t, streak.OutcomeStarted, result.Streak.Outcome)

	unlocked := make([]string, 0, len(result.UnlockedBadges))
	for _, u := range result.UnlockedBadges {
		unlocked = append(unlocked, u.Definition.ID)
	}
	assert.Contains(t, unlocked, "first_lesson")

	// The committed write is visible on a fresh load.
	loaded, err := f.profiles.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(30), loaded.XP)
	assert.True(t, loaded.HasBadge("first_lesson"))

	assert.Equal(t, []string{"u1"}, f.rec.invalidated)
	assert.Len(t, f.rec.publishedOfType(shared.EventXPAwarded), 1)
	assert.Len(t, f.rec.publishedOfType(shared.EventBadgeUnlocked), len(result.UnlockedBadges))
}

func TestApplyEvent_SeventhDayMilestone(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	f.seed(t, func(p *profile.Profile) {
		p.StreakCount = 6
		p.BestStreak = 6
		p.LastActiveDate = now.AddDate(0, 0, -1)
	})

	result, err := f.handler.Handle(context.Background(), lessonEvent("e1", now))
	assert.NoError(t, err)

	assert.Equal(t, 7, result.Profile.StreakCount)
	assert.Equal(t, 7, result.Streak.Milestone)
	assert.True(t, result.Streak.FreezeTokenGranted)
	assert.Equal(t, 4, result.Profile.FreezeTokens)

	// round(20*1*1.5)+10 streak bonus, plus the flat 30 milestone bonus. The
	// streak ladder is paid once, on the main award only.
	assert.Equal(t, 70, result.XPAwarded)

	unlocked := make([]string, 0, len(result.UnlockedBadges))
	for _, u := range result.UnlockedBadges {
		unlocked = append(unlocked, u.Definition.ID)
	}
	assert.Contains(t, unlocked, "streak_7")

	milestones := f.rec.publishedOfType(shared.EventStreakMilestone)
	assert.Len(t, milestones, 1)
	me, ok := milestones[0].(shared.StreakMilestoneEvent)
	assert.True(t, ok)
	assert.Equal(t, 7, me.Milestone)
	assert.Equal(t, 1, me.TokensGranted)
}

func TestApplyEvent_FreezeTokenGrantCapped(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	f.seed(t, func(p *profile.Profile) {
		p.StreakCount = 6
		p.FreezeTokens = 5
		p.LastActiveDate = now.AddDate(0, 0, -1)
	})

	result, err := f.handler.Handle(context.Background(), lessonEvent("e1", now))
	assert.NoError(t, err)
	assert.True(t, result.Streak.FreezeTokenGranted)
	assert.Equal(t, 5, result.Profile.FreezeTokens, "grants never exceed the token cap")
}

func TestApplyEvent_PerfectQuizDrivesDerivedBadges(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)

	event := shared.DomainEvent{
		ID:         "q1",
		Type:       shared.EventQuizCompleted,
		UserID:     "u1",
		OccurredAt: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		Payload: shared.EventPayload{
			Difficulty:    "beginner",
			Accuracy:      1.0,
			QuestionCount: 5,
		},
	}
	result, err := f.handler.Handle(context.Background(), event)
	assert.NoError(t, err)

	unlocked := make([]string, 0, len(result.UnlockedBadges))
	for _, u := range result.UnlockedBadges {
		unlocked = append(unlocked, u.Definition.ID)
	}
	assert.Contains(t, unlocked, "perfect_score")
	assert.NotContains(t, unlocked, "first_lesson", "a quiz is not a lesson")
}

func TestApplyEvent_LevelUpEmitsAndDerives(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	f.seed(t, func(p *profile.Profile) {
		p.XP = 160 // 3 XP short of level 2
		p.StreakCount = 1
		p.LastActiveDate = now.Add(-2 * time.Hour)
	})

	result, err := f.handler.Handle(context.Background(), lessonEvent("e1", now))
	assert.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, progression.Level(1), result.OldLevel)
	assert.Equal(t, progression.Level(2), result.NewLevel)
	assert.Len(t, f.rec.publishedOfType(shared.EventLevelReached), 1)
}

func TestApplyEvent_SignalEventAwardsNoXP(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)

	event := shared.DomainEvent{
		ID:         "w1",
		Type:       shared.EventWeeklyGoalMet,
		UserID:     "u1",
		OccurredAt: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	result, err := f.handler.Handle(context.Background(), event)
	assert.NoError(t, err)

	assert.Equal(t, 0, result.XPAwarded)
	assert.Equal(t, 0, result.Profile.StreakCount, "signal events never touch the streak")

	unlocked := make([]string, 0, len(result.UnlockedBadges))
	for _, u := range result.UnlockedBadges {
		unlocked = append(unlocked, u.Definition.ID)
	}
	assert.Contains(t, unlocked, "weekly_goal")
	assert.Empty(t, f.rec.publishedOfType(shared.EventXPAwarded))
}

func TestApplyEvent_NightOwlAndEarlyBird(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)

	night := lessonEvent("n1", time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC))
	result, err := f.handler.Handle(context.Background(), night)
	assert.NoError(t, err)
	ids := make([]string, 0, len(result.UnlockedBadges))
	for _, u := range result.UnlockedBadges {
		ids = append(ids, u.Definition.ID)
	}
	assert.Contains(t, ids, "night_owl")
	assert.NotContains(t, ids, "early_bird")

	early := lessonEvent("n2", time.Date(2026, 3, 3, 5, 0, 0, 0, time.UTC))
	result, err = f.handler.Handle(context.Background(), early)
	assert.NoError(t, err)
	ids = ids[:0]
	for _, u := range result.UnlockedBadges {
		ids = append(ids, u.Definition.ID)
	}
	assert.Contains(t, ids, "early_bird")
}

func TestApplyEvent_RejectsInvalidEvents(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, shared.DomainEvent{ID: "x", Type: "made_up", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.handler.Handle(ctx, shared.DomainEvent{ID: "x", Type: shared.EventLessonCompleted})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	bad := lessonEvent("x", time.Now().UTC())
	bad.Payload.Accuracy = 1.5
	_, err = f.handler.Handle(ctx, bad)
	assert.ErrorIs(t, err, shared.ErrInvalidAccuracy)
}

func TestApplyEvent_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.handler.Handle(context.Background(), lessonEvent("e1", time.Now().UTC()))
	assert.True(t, shared.IsNotFound(err))
}

func TestApplyEvent_ConcurrentUpdatesNeverLost(t *testing.T) {
	f := newFixture(t)
	f.seed(t, nil)
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	// Both writers race on the same profile version; the loser must retry
	// from a fresh load so neither award is dropped.
	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		event := lessonEvent("e"+string(rune('0'+i)), now.Add(time.Duration(i)*time.Minute))
		wg.Add(1)
		go func(ev shared.DomainEvent) {
			defer wg.Done()
			_, err := f.handler.Handle(context.Background(), ev)
			errs <- err
		}(event)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	loaded, err := f.profiles.Get(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, progression.XP(30*writers), loaded.XP)
	assert.Equal(t, 1, loaded.StreakCount, "same-day events extend the streak once")
}
