// Package query contains read operations (CQRS - Queries). Queries never
// mutate state and never take the conflict-retry path.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/progression"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
)

// ProfileCache is the read-through cache for profile snapshots.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	Set(ctx context.Context, p *profile.Profile) error
}

// ProfileView is the display-ready profile snapshot.
type ProfileView struct {
	// Profile is the raw persisted state.
	Profile *profile.Profile

	// LevelProgress positions the user on the curve.
	LevelProgress progression.LevelProgress

	// StreakDeadline is when the current streak expires without activity,
	// zero when no streak is active.
	StreakDeadline time.Time

	// Badges pairs each held award with its definition; awards whose
	// definition was retired from the catalog are omitted.
	Badges []badge.Unlock
}

// GetProfileHandler serves profile display reads, cache first.
type GetProfileHandler struct {
	profiles profile.Repository
	catalog  *badge.Catalog
	curve    *progression.Curve
	streaks  *streak.Machine
	cache    ProfileCache
	logger   *slog.Logger
}

// NewGetProfileHandler creates the handler. cache may be nil.
func NewGetProfileHandler(
	profiles profile.Repository,
	catalog *badge.Catalog,
	curve *progression.Curve,
	streaks *streak.Machine,
	cache ProfileCache,
	logger *slog.Logger,
) *GetProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetProfileHandler{
		profiles: profiles,
		catalog:  catalog,
		curve:    curve,
		streaks:  streaks,
		cache:    cache,
		logger:   logger,
	}
}

// Handle returns the display view for one user.
func (h *GetProfileHandler) Handle(ctx context.Context, userID string) (*ProfileView, error) {
	p, err := h.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{
		Profile:       p,
		LevelProgress: h.curve.Progress(p.XP),
	}
	if p.StreakCount > 0 && !p.LastActiveDate.IsZero() {
		view.StreakDeadline = h.streaks.NextDeadline(p.LastActiveDate, p.Location())
	}
	for _, award := range p.Badges {
		def, err := h.catalog.Get(award.BadgeID)
		if err != nil {
			continue
		}
		view.Badges = append(view.Badges, badge.Unlock{Definition: def, Award: award})
	}
	return view, nil
}

// load reads through the cache when one is configured.
func (h *GetProfileHandler) load(ctx context.Context, userID string) (*profile.Profile, error) {
	if h.cache != nil {
		if p, err := h.cache.Get(ctx, userID); err == nil {
			return p, nil
		}
	}

	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, p); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("get_profile: cache set failed", "user_id", userID, "error", err)
		}
	}
	return p, nil
}
