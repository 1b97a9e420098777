package badge

import (
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// Evaluation is the outcome of running one event through the rule engine:
// the progress counters to persist and the badges that newly qualify.
// The caller persists both inside the same atomic update as the triggering
// mutation, so a retried write can never double-count or double-award.
type Evaluation struct {
	// Updated contains every progress counter that moved.
	Updated []*Progress

	// NewAwards contains the badges that newly qualify, with their
	// definitions for downstream notification.
	NewAwards []Unlock
}

// Unlock pairs a fresh award with its definition.
type Unlock struct {
	Definition Definition
	Award      Award
}

// HasUnlocks reports whether any badge newly qualified.
func (e Evaluation) HasUnlocks() bool {
	return len(e.NewAwards) > 0
}

// Engine evaluates badge criteria against incoming events. It is pure:
// state in, decisions out. The coordinator owns persistence.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an Engine over a catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog exposes the engine's catalog for pure read queries.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// CheckAndAward runs one event through every active, not-yet-earned
// definition listening to its type. held is the user's award set keyed by
// badge ID; progress is the user's existing counters keyed by badge ID
// (counters for already-earned badges stay frozen and are never touched).
func (e *Engine) CheckAndAward(userID string, event shared.DomainEvent, held map[string]Award, progress map[string]*Progress, now time.Time) Evaluation {
	var result Evaluation

	for _, def := range e.catalog.ListeningTo(event.Type) {
		if _, earned := held[def.ID]; earned {
			// Idempotent: an already-held badge is a no-op, never an error.
			continue
		}

		current := 0
		if p, ok := progress[def.ID]; ok {
			current = p.CurrentValue
		}

		newValue, qualifies := advance(def.Criteria, current, event.Payload)
		if newValue != current {
			result.Updated = append(result.Updated, &Progress{
				UserID:       userID,
				BadgeID:      def.ID,
				CurrentValue: newValue,
				UpdatedAt:    now,
			})
		}
		if qualifies {
			result.NewAwards = append(result.NewAwards, Unlock{
				Definition: def,
				Award:      Award{BadgeID: def.ID, EarnedAt: now},
			})
		}
	}

	return result
}

// advance moves one progress counter per the criteria's progress type and
// reports whether the badge now qualifies.
func advance(criteria Criteria, current int, payload shared.EventPayload) (newValue int, qualifies bool) {
	switch criteria.ProgressType {
	case ProgressCumulative:
		delta := payload.Delta
		if delta <= 0 {
			delta = 1
		}
		newValue = current + delta
	case ProgressConsecutive:
		// Mirror the external counter; never accumulate locally.
		newValue = payload.StreakLength
	case ProgressMilestone:
		newValue = payload.MilestoneValue
	case ProgressAchievement:
		// One-shot: any matching occurrence qualifies immediately.
		if current < 1 {
			current = 1
		}
		return current, true
	default:
		return current, false
	}

	return newValue, newValue >= criteria.TargetValue
}
