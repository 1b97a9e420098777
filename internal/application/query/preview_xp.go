package query

import (
	"context"

	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
)

// PreviewXPQuery describes a hypothetical activity to score.
type PreviewXPQuery struct {
	UserID        string
	Activity      progression.ActivityType
	Difficulty    string
	Accuracy      float64
	DurationMins  int
	QuestionCount int
}

// PreviewXPResult is the side-effect-free award preview.
type PreviewXPResult struct {
	// XP is the award the activity would earn right now.
	XP int

	// WouldLevelUp is true when the award would cross a level boundary.
	WouldLevelUp bool

	// ProjectedLevel is the level after the hypothetical award.
	ProjectedLevel progression.Level
}

// PreviewXPHandler scores an activity without applying it, so the app can
// show "earn up to N XP" prompts.
type PreviewXPHandler struct {
	profiles   profile.Repository
	calculator *progression.Calculator
	curve      *progression.Curve
}

// NewPreviewXPHandler creates the handler.
func NewPreviewXPHandler(profiles profile.Repository, calculator *progression.Calculator, curve *progression.Curve) *PreviewXPHandler {
	return &PreviewXPHandler{profiles: profiles, calculator: calculator, curve: curve}
}

// Handle computes the preview against the user's current streak and XP.
func (h *PreviewXPHandler) Handle(ctx context.Context, q PreviewXPQuery) (*PreviewXPResult, error) {
	p, err := h.profiles.Get(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	award, err := h.calculator.Award(progression.AwardInput{
		Activity:      q.Activity,
		Difficulty:    q.Difficulty,
		Accuracy:      q.Accuracy,
		Duration:      minutes(q.DurationMins),
		QuestionCount: q.QuestionCount,
		StreakCount:   p.StreakCount,
	})
	if err != nil {
		return nil, err
	}

	projected := h.curve.LevelFor(p.XP.Add(award))
	return &PreviewXPResult{
		XP:             award,
		WouldLevelUp:   projected > p.Level,
		ProjectedLevel: projected,
	}, nil
}
