package progression

import (
	"math"
	"strings"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// ActivityType identifies the kind of activity an XP award is computed for.
type ActivityType string

const (
	ActivityLesson         ActivityType = "lesson"
	ActivityQuiz           ActivityType = "quiz"
	ActivityPronunciation  ActivityType = "pronunciation"
	ActivityDailyChallenge ActivityType = "daily_challenge"
	ActivityStreakBonus    ActivityType = "streak_milestone"
)

// AwardConfig holds all XP award tunables in one injectable value.
type AwardConfig struct {
	// LessonBase is the base XP for a completed lesson.
	LessonBase int

	// QuizPerQuestion is the base XP per quiz question.
	QuizPerQuestion int

	// PronunciationBase is the base XP for a pronunciation exercise.
	PronunciationBase int

	// DailyChallengeBase is the base XP for the daily challenge.
	DailyChallengeBase int

	// StreakMilestoneBase is the base XP for a streak milestone reward.
	StreakMilestoneBase int

	// DefaultBase is the base XP for anything else.
	DefaultBase int

	// DurationBonusPer10Min is the XP granted per full 10 minutes of study.
	// The total duration bonus is capped at half the base reward.
	DurationBonusPer10Min int

	// MaxAwardPerEvent is the anti-abuse ceiling on a single award.
	MaxAwardPerEvent int

	// StreakBonusSteps maps minimum streak length to a flat bonus,
	// evaluated highest threshold first.
	StreakBonusSteps []StreakBonusStep
}

// StreakBonusStep is one step of the streak bonus ladder.
type StreakBonusStep struct {
	MinStreak int
	Bonus     int
}

// DefaultAwardConfig returns the production award tunables.
func DefaultAwardConfig() AwardConfig {
	return AwardConfig{
		LessonBase:            20,
		QuizPerQuestion:       10,
		PronunciationBase:     15,
		DailyChallengeBase:    25,
		StreakMilestoneBase:   30,
		DefaultBase:           5,
		DurationBonusPer10Min: 2,
		MaxAwardPerEvent:      1000,
		StreakBonusSteps: []StreakBonusStep{
			{MinStreak: 60, Bonus: 25},
			{MinStreak: 30, Bonus: 20},
			{MinStreak: 14, Bonus: 15},
			{MinStreak: 7, Bonus: 10},
			{MinStreak: 3, Bonus: 5},
		},
	}
}

// AwardInput describes one activity to score.
type AwardInput struct {
	Activity      ActivityType
	Difficulty    string
	Accuracy      float64
	Duration      time.Duration
	QuestionCount int
	StreakCount   int
}

// Validate rejects out-of-range inputs before any computation.
func (in AwardInput) Validate() error {
	if in.Accuracy < 0 || in.Accuracy > 1 {
		return shared.ErrInvalidAccuracy
	}
	if in.Duration < 0 {
		return shared.ErrInvalidDuration
	}
	if in.StreakCount < 0 {
		return shared.ErrNegativeStreak
	}
	return nil
}

// Calculator computes XP awards from activity inputs.
type Calculator struct {
	cfg AwardConfig
}

// NewCalculator creates a Calculator with the given config.
func NewCalculator(cfg AwardConfig) *Calculator {
	if cfg.MaxAwardPerEvent <= 0 {
		cfg = DefaultAwardConfig()
	}
	return &Calculator{cfg: cfg}
}

// BaseXP computes the base reward for an activity: the per-type constant
// scaled by accuracy (unscored activities pass through unscaled), plus a
// duration bonus capped at half the base.
func (c *Calculator) BaseXP(activity ActivityType, duration time.Duration, accuracy float64, questionCount int) float64 {
	var base float64
	switch activity {
	case ActivityLesson:
		base = float64(c.cfg.LessonBase)
	case ActivityQuiz:
		if questionCount < 1 {
			questionCount = 1
		}
		base = float64(c.cfg.QuizPerQuestion * questionCount)
	case ActivityPronunciation:
		base = float64(c.cfg.PronunciationBase)
	case ActivityDailyChallenge:
		base = float64(c.cfg.DailyChallengeBase)
	case ActivityStreakBonus:
		base = float64(c.cfg.StreakMilestoneBase)
	default:
		base = float64(c.cfg.DefaultBase)
	}

	if accuracy > 0 {
		base *= accuracy
	}

	bonus := float64(int(duration.Minutes())/10) * float64(c.cfg.DurationBonusPer10Min)
	if maxBonus := base / 2; bonus > maxBonus {
		bonus = maxBonus
	}
	return base + bonus
}

// DifficultyMultiplier returns the multiplier for a difficulty label.
// Unknown labels fall back to 1.
func (c *Calculator) DifficultyMultiplier(difficulty string) float64 {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "beginner", "easy":
		return 1
	case "intermediate", "medium":
		return 2
	case "advanced", "hard":
		return 3
	case "expert", "extreme":
		return 4
	default:
		return 1
	}
}

// AccuracyMultiplier returns the banded accuracy multiplier. The ladder
// rewards near-perfection and never zeroes an award: the floor is 0.6.
// Unscored activities (accuracy <= 0) are treated as neutral.
func (c *Calculator) AccuracyMultiplier(accuracy float64) float64 {
	switch {
	case accuracy <= 0:
		return 1.0
	case accuracy >= 0.95:
		return 1.5
	case accuracy >= 0.90:
		return 1.3
	case accuracy >= 0.80:
		return 1.1
	case accuracy >= 0.70:
		return 1.0
	case accuracy >= 0.60:
		return 0.9
	case accuracy >= 0.50:
		return 0.8
	default:
		return 0.6
	}
}

// StreakBonus returns the flat bonus for the current streak length.
func (c *Calculator) StreakBonus(streakCount int) int {
	for _, step := range c.cfg.StreakBonusSteps {
		if streakCount >= step.MinStreak {
			return step.Bonus
		}
	}
	return 0
}

// Award computes the final XP award:
//
//	round(BaseXP * DifficultyMultiplier * AccuracyMultiplier) + StreakBonus
//
// clamped to the per-event ceiling. Out-of-range accuracy is a validation
// failure, never silently clamped.
func (c *Calculator) Award(in AwardInput) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	base := c.BaseXP(in.Activity, in.Duration, in.Accuracy, in.QuestionCount)
	award := int(math.Round(base*c.DifficultyMultiplier(in.Difficulty)*c.AccuracyMultiplier(in.Accuracy))) + c.StreakBonus(in.StreakCount)

	if award < 0 {
		award = 0
	}
	if award > c.cfg.MaxAwardPerEvent {
		award = c.cfg.MaxAwardPerEvent
	}
	return award, nil
}
