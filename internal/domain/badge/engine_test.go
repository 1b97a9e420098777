package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

func testCatalog(t *testing.T, defs ...Definition) *Catalog {
	t.Helper()
	c, err := NewCatalog(defs)
	assert.NoError(t, err)
	return c
}

func cumulativeDef(id string, eventType shared.EventType, target int) Definition {
	return Definition{
		ID: id, Title: id, Description: id,
		Category: CategoryLessons, Rarity: RarityCommon,
		Criteria: Criteria{EventType: eventType, TargetValue: target, ProgressType: ProgressCumulative},
		IsActive: true,
	}
}

func TestEngine_Cumulative_AccumulatesAndAwards(t *testing.T) {
	engine := NewEngine(testCatalog(t, cumulativeDef("lessons_3", shared.EventLessonCompleted, 3)))
	now := time.Now()
	progress := map[string]*Progress{}

	event := shared.DomainEvent{Type: shared.EventLessonCompleted, UserID: "u1"}

	for i := 1; i <= 2; i++ {
		eval := engine.CheckAndAward("u1", event, nil, progress, now)
		assert.Len(t, eval.Updated, 1)
		assert.Equal(t, i, eval.Updated[0].CurrentValue)
		assert.Empty(t, eval.NewAwards)
		progress["lessons_3"] = eval.Updated[0]
	}

	eval := engine.CheckAndAward("u1", event, nil, progress, now)
	assert.Len(t, eval.NewAwards, 1)
	assert.Equal(t, "lessons_3", eval.NewAwards[0].Award.BadgeID)
	assert.Equal(t, 3, eval.Updated[0].CurrentValue)
}

func TestEngine_Cumulative_DeltaOverridesStep(t *testing.T) {
	engine := NewEngine(testCatalog(t, cumulativeDef("lessons_10", shared.EventLessonCompleted, 10)))

	event := shared.DomainEvent{
		Type:    shared.EventLessonCompleted,
		UserID:  "u1",
		Payload: shared.EventPayload{Delta: 4},
	}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, time.Now())
	assert.Equal(t, 4, eval.Updated[0].CurrentValue)
	assert.Empty(t, eval.NewAwards)
}

func TestEngine_Consecutive_MirrorsCounter(t *testing.T) {
	def := Definition{
		ID: "streak_7", Title: "streak", Description: "streak",
		Category: CategoryStreaks, Rarity: RarityUncommon,
		Criteria: Criteria{EventType: shared.EventStreakExtended, TargetValue: 7, ProgressType: ProgressConsecutive},
		IsActive: true,
	}
	engine := NewEngine(testCatalog(t, def))
	now := time.Now()

	// A streak reset mirrors downward; consecutive progress never accumulates.
	event := shared.DomainEvent{Type: shared.EventStreakExtended, UserID: "u1", Payload: shared.EventPayload{StreakLength: 5}}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{"streak_7": {BadgeID: "streak_7", CurrentValue: 6}}, now)
	assert.Equal(t, 5, eval.Updated[0].CurrentValue)
	assert.Empty(t, eval.NewAwards)

	event.Payload.StreakLength = 7
	eval = engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, now)
	assert.Len(t, eval.NewAwards, 1)
}

func TestEngine_Milestone_QualifiesAtTarget(t *testing.T) {
	def := Definition{
		ID: "level_5", Title: "level", Description: "level",
		Category: CategoryMilestones, Rarity: RarityCommon,
		Criteria: Criteria{EventType: shared.EventLevelUp, TargetValue: 5, ProgressType: ProgressMilestone},
		IsActive: true,
	}
	engine := NewEngine(testCatalog(t, def))
	now := time.Now()

	event := shared.DomainEvent{Type: shared.EventLevelUp, UserID: "u1", Payload: shared.EventPayload{MilestoneValue: 4}}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, now)
	assert.Empty(t, eval.NewAwards)

	// Skipping past the target still qualifies.
	event.Payload.MilestoneValue = 6
	eval = engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, now)
	assert.Len(t, eval.NewAwards, 1)
}

func TestEngine_Achievement_OneShot(t *testing.T) {
	def := Definition{
		ID: "perfect_score", Title: "flawless", Description: "flawless",
		Category: CategoryQuizzes, Rarity: RarityUncommon,
		Criteria: Criteria{EventType: shared.EventPerfectScore, ProgressType: ProgressAchievement},
		IsActive: true,
	}
	engine := NewEngine(testCatalog(t, def))

	event := shared.DomainEvent{Type: shared.EventPerfectScore, UserID: "u1"}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, time.Now())
	assert.Len(t, eval.NewAwards, 1)
}

func TestEngine_EarnedBadgeIsIdempotent(t *testing.T) {
	engine := NewEngine(testCatalog(t, cumulativeDef("lessons_3", shared.EventLessonCompleted, 3)))

	held := map[string]Award{"lessons_3": {BadgeID: "lessons_3", EarnedAt: time.Now()}}
	progress := map[string]*Progress{"lessons_3": {BadgeID: "lessons_3", CurrentValue: 3}}

	event := shared.DomainEvent{Type: shared.EventLessonCompleted, UserID: "u1"}
	eval := engine.CheckAndAward("u1", event, held, progress, time.Now())

	// Nothing moves for an earned badge: no award, no counter change.
	assert.Empty(t, eval.NewAwards)
	assert.Empty(t, eval.Updated)
}

func TestEngine_InactiveDefinitionIgnored(t *testing.T) {
	def := cumulativeDef("lessons_3", shared.EventLessonCompleted, 3)
	def.IsActive = false
	other := cumulativeDef("lessons_5", shared.EventLessonCompleted, 5)
	engine := NewEngine(testCatalog(t, def, other))

	event := shared.DomainEvent{Type: shared.EventLessonCompleted, UserID: "u1"}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, time.Now())
	assert.Len(t, eval.Updated, 1)
	assert.Equal(t, "lessons_5", eval.Updated[0].BadgeID)
}

func TestEngine_UnrelatedEventTypeIgnored(t *testing.T) {
	engine := NewEngine(testCatalog(t, cumulativeDef("lessons_3", shared.EventLessonCompleted, 3)))

	event := shared.DomainEvent{Type: shared.EventQuizCompleted, UserID: "u1"}
	eval := engine.CheckAndAward("u1", event, nil, map[string]*Progress{}, time.Now())
	assert.Empty(t, eval.Updated)
	assert.Empty(t, eval.NewAwards)
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog(nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	dup := cumulativeDef("x", shared.EventLessonCompleted, 1)
	_, err = NewCatalog([]Definition{dup, dup})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCatalog_Lookups(t *testing.T) {
	a := cumulativeDef("a", shared.EventLessonCompleted, 1)
	b := cumulativeDef("b", shared.EventQuizCompleted, 2)
	b.Category = CategoryQuizzes
	c := testCatalog(t, b, a)

	got, err := c.Get("a")
	assert.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// All is ordered by ID regardless of insertion order.
	all := c.All()
	assert.Equal(t, []string{"a", "b"}, []string{all[0].ID, all[1].ID})

	assert.Len(t, c.ListeningTo(shared.EventQuizCompleted), 1)
	assert.Len(t, c.ByCategory(CategoryQuizzes), 1)
	assert.Len(t, c.AvailableTo(map[string]Award{"a": {BadgeID: "a"}}), 1)
	assert.Equal(t, 2, c.Size())
}

func TestDefaultDefinitions_FormValidCatalog(t *testing.T) {
	c, err := NewCatalog(DefaultDefinitions())
	assert.NoError(t, err)
	assert.Equal(t, len(DefaultDefinitions()), c.Size())
}
