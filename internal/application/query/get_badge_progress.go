package query

import (
	"context"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/profile"
)

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// BadgeStatus is one catalog entry annotated with the user's standing.
type BadgeStatus struct {
	Definition badge.Definition

	// Earned is true when the badge is held.
	Earned bool

	// EarnedAt is set when Earned.
	EarnedAt time.Time

	// CurrentValue is the progress counter toward the target, frozen once
	// earned.
	CurrentValue int

	// TargetValue mirrors the criteria target, 0 for one-shot achievements.
	TargetValue int
}

// GetBadgeProgressHandler lists the full catalog with per-user progress, the
// shape the app's badge screen renders directly.
type GetBadgeProgressHandler struct {
	profiles profile.Repository
	progress badge.ProgressRepository
	catalog  *badge.Catalog
}

// NewGetBadgeProgressHandler creates the handler.
func NewGetBadgeProgressHandler(profiles profile.Repository, progress badge.ProgressRepository, catalog *badge.Catalog) *GetBadgeProgressHandler {
	return &GetBadgeProgressHandler{profiles: profiles, progress: progress, catalog: catalog}
}

// Handle returns the status of every active badge for one user, ordered by ID.
func (h *GetBadgeProgressHandler) Handle(ctx context.Context, userID string) ([]BadgeStatus, error) {
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	counters, err := h.progress.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	held := p.AwardSet()
	out := make([]BadgeStatus, 0, len(h.catalog.Active()))
	for _, def := range h.catalog.Active() {
		status := BadgeStatus{
			Definition:  def,
			TargetValue: def.Criteria.TargetValue,
		}
		if award, ok := held[def.ID]; ok {
			status.Earned = true
			status.EarnedAt = award.EarnedAt
			status.CurrentValue = def.Criteria.TargetValue
		} else if pr, ok := counters[def.ID]; ok {
			status.CurrentValue = pr.CurrentValue
		}
		out = append(out, status)
	}
	return out, nil
}
