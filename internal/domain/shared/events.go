// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a learning-activity or engine event.
type EventType string

// Learning-activity event types consumed by the engine. This is a closed
// vocabulary: the coordinator rejects anything outside it before mutation.
const (
	EventLessonCompleted       EventType = "lesson_completed"
	EventQuizCompleted         EventType = "quiz_completed"
	EventPronunciationPractice EventType = "pronunciation_practiced"
	EventStreakExtended        EventType = "streak_extended"
	EventLevelUp               EventType = "level_up"
	EventPerfectScore          EventType = "perfect_score"
	EventFirstLesson           EventType = "first_lesson"
	EventWeeklyGoalMet         EventType = "weekly_goal_met"
	EventLongStudySession      EventType = "long_study_session"
	EventEarlyBird             EventType = "early_bird"
	EventNightOwl              EventType = "night_owl"
)

// Engine event types published on the bus after a successful update.
const (
	EventBadgeUnlocked   EventType = "engine.badge_unlocked"
	EventXPAwarded       EventType = "engine.xp_awarded"
	EventLevelReached    EventType = "engine.level_reached"
	EventStreakMilestone EventType = "engine.streak_milestone"
	EventStreakBroken    EventType = "engine.streak_broken"
)

// ActivityEventTypes lists every accepted incoming event type.
var ActivityEventTypes = map[EventType]bool{
	EventLessonCompleted:       true,
	EventQuizCompleted:         true,
	EventPronunciationPractice: true,
	EventStreakExtended:        true,
	EventLevelUp:               true,
	EventPerfectScore:          true,
	EventFirstLesson:           true,
	EventWeeklyGoalMet:         true,
	EventLongStudySession:      true,
	EventEarlyBird:             true,
	EventNightOwl:              true,
}

// IsActivityEvent reports whether t belongs to the incoming vocabulary.
func (t EventType) IsActivityEvent() bool {
	return ActivityEventTypes[t]
}

// CountsForStreak reports whether an event type represents qualifying daily
// activity. Only genuine study activity extends the streak; derived events
// (perfect score, level up) do not.
func (t EventType) CountsForStreak() bool {
	switch t {
	case EventLessonCompleted, EventQuizCompleted, EventPronunciationPractice:
		return true
	}
	return false
}

// EventPayload carries the fields the engine actually consumes. Incoming
// events from clients arrive as generic maps at the store boundary; inside
// the domain they are a closed struct so criteria evaluation stays typed.
type EventPayload struct {
	// ActivityID identifies the lesson/quiz/exercise, when applicable.
	ActivityID string `json:"activity_id,omitempty"`

	// Difficulty is the activity difficulty label ("beginner".."expert").
	Difficulty string `json:"difficulty,omitempty"`

	// Accuracy is the score fraction in [0,1] for scored activities.
	Accuracy float64 `json:"accuracy,omitempty"`

	// Duration is how long the activity took.
	Duration time.Duration `json:"duration,omitempty"`

	// QuestionCount is the number of questions (quiz events).
	QuestionCount int `json:"question_count,omitempty"`

	// StreakLength is the externally tracked counter for consecutive-type
	// badge criteria (e.g. current streak length on streak_extended).
	StreakLength int `json:"streak_length,omitempty"`

	// MilestoneValue is the milestone reached, for milestone-type criteria.
	MilestoneValue int `json:"milestone_value,omitempty"`

	// Delta overrides the default +1 step for cumulative-type criteria.
	Delta int `json:"delta,omitempty"`
}

// DomainEvent is a learning-activity event submitted to the engine.
type DomainEvent struct {
	// ID is the per-action idempotency key supplied by the caller.
	ID string `json:"id"`

	// Type is the event type from the closed vocabulary.
	Type EventType `json:"type"`

	// UserID is the user the event belongs to.
	UserID string `json:"user_id"`

	// OccurredAt is when the activity happened (client local instant, UTC).
	OccurredAt time.Time `json:"occurred_at"`

	// Payload carries the typed event fields.
	Payload EventPayload `json:"payload"`
}

// NewDomainEvent creates an event with a generated idempotency key.
func NewDomainEvent(eventType EventType, userID string, payload EventPayload) DomainEvent {
	return DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Validate checks the event against the closed vocabulary and payload ranges.
func (e DomainEvent) Validate() error {
	if e.UserID == "" {
		return ErrInvalidUserID
	}
	if !e.Type.IsActivityEvent() {
		return NewDomainError("shared", "Validate", ErrValidation, "unknown event type: "+string(e.Type))
	}
	if e.Payload.Accuracy < 0 || e.Payload.Accuracy > 1 {
		return ErrInvalidAccuracy
	}
	if e.Payload.Duration < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine events (published on the bus, consumed by the activity feed)
// ─────────────────────────────────────────────────────────────────────────────

// Event is the base interface for all engine events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the user that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, userID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: userID,
	}
}

// XPAwardedEvent is emitted when a user gains XP.
type XPAwardedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	Amount   int       `json:"amount"`
	NewTotal int       `json:"new_total"`
	Source   EventType `json:"source"`
}

// Payload implements Event interface.
func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    string(e.Source),
	}
}

// NewXPAwardedEvent creates a new XPAwardedEvent.
func NewXPAwardedEvent(userID string, amount, newTotal int, source EventType) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent: NewBaseEvent(EventXPAwarded, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelReachedEvent is emitted when a user's level increases.
type LevelReachedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelReachedEvent creates a new LevelReachedEvent.
func NewLevelReachedEvent(userID string, oldLevel, newLevel, totalXP int) LevelReachedEvent {
	return LevelReachedEvent{
		BaseEvent: NewBaseEvent(EventLevelReached, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// BadgeUnlockedEvent is emitted when a badge is newly awarded.
type BadgeUnlockedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	BadgeID string `json:"badge_id"`
	Title   string `json:"title"`
	Rarity  string `json:"rarity"`
}

// Payload implements Event interface.
func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"badge_id": e.BadgeID,
		"title":    e.Title,
		"rarity":   e.Rarity,
	}
}

// NewBadgeUnlockedEvent creates a new BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(userID, badgeID, title, rarity string) BadgeUnlockedEvent {
	return BadgeUnlockedEvent{
		BaseEvent: NewBaseEvent(EventBadgeUnlocked, userID),
		UserID:    userID,
		BadgeID:   badgeID,
		Title:     title,
		Rarity:    rarity,
	}
}

// StreakMilestoneEvent is emitted when a streak crosses a milestone.
type StreakMilestoneEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	Milestone     int    `json:"milestone"`
	CurrentStreak int    `json:"current_streak"`
	TokensGranted int    `json:"tokens_granted"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"milestone":      e.Milestone,
		"current_streak": e.CurrentStreak,
		"tokens_granted": e.TokensGranted,
	}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(userID string, milestone, currentStreak, tokensGranted int) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent:     NewBaseEvent(EventStreakMilestone, userID),
		UserID:        userID,
		Milestone:     milestone,
		CurrentStreak: currentStreak,
		TokensGranted: tokensGranted,
	}
}

// StreakBrokenEvent is emitted by the sweep when a streak resets to zero.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
