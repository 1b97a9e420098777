// Package badge owns the badge catalog, per-user progress counters, and the
// event-driven rule engine that decides when a badge newly qualifies.
package badge

import (
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// Category groups badges for catalog browsing.
type Category string

const (
	CategoryLessons       Category = "lessons"
	CategoryStreaks       Category = "streaks"
	CategoryQuizzes       Category = "quizzes"
	CategoryPronunciation Category = "pronunciation"
	CategorySocial        Category = "social"
	CategoryMilestones    Category = "milestones"
	CategoryAchievements  Category = "achievements"
	CategorySpecial       Category = "special"
)

// Rarity ranks how hard a badge is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// ProgressType defines how an event moves a badge's progress counter.
type ProgressType string

const (
	// ProgressCumulative accumulates +1 (or a payload delta) per event.
	ProgressCumulative ProgressType = "cumulative"

	// ProgressConsecutive mirrors an externally tracked counter carried in
	// the event payload (e.g. the streak length), never locally accumulated.
	ProgressConsecutive ProgressType = "consecutive"

	// ProgressAchievement is one-shot: any matching event qualifies.
	ProgressAchievement ProgressType = "achievement"

	// ProgressMilestone mirrors the milestone value carried in the payload.
	ProgressMilestone ProgressType = "milestone"
)

// Criteria defines when a badge qualifies.
type Criteria struct {
	// EventType is the incoming event type this badge listens to.
	EventType shared.EventType `json:"event_type"`

	// TargetValue is the progress value at which the badge qualifies.
	TargetValue int `json:"target_value"`

	// ProgressType defines how progress moves.
	ProgressType ProgressType `json:"progress_type"`
}

// Definition describes one badge. Definitions are immutable, authored
// externally, and loaded once into the catalog.
type Definition struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Rarity      Rarity   `json:"rarity"`
	Criteria    Criteria `json:"criteria"`
	IsActive    bool     `json:"is_active"`
}

// Validate checks a definition for catalog admission.
func (d Definition) Validate() error {
	if d.ID == "" || d.Title == "" {
		return shared.ErrInvalidDefinition
	}
	switch d.Criteria.ProgressType {
	case ProgressCumulative, ProgressConsecutive, ProgressMilestone:
		if d.Criteria.TargetValue < 1 {
			return shared.ErrInvalidDefinition
		}
	case ProgressAchievement:
		// One-shot badges need no target.
	default:
		return shared.ErrInvalidDefinition
	}
	if d.Criteria.EventType == "" {
		return shared.ErrInvalidDefinition
	}
	return nil
}

// Award records one earned badge. At most one award exists per badge per
// user; re-awarding is an idempotent no-op.
type Award struct {
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// Progress tracks one user's counter toward one badge. Created lazily on the
// first matching event; frozen (kept, not deleted) once the badge is awarded.
type Progress struct {
	UserID       string    `json:"user_id"`
	BadgeID      string    `json:"badge_id"`
	CurrentValue int       `json:"current_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}
