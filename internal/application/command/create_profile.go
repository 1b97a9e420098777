package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROFILE COMMAND
// Onboarding: one profile per user, created exactly once.
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileCommand contains the onboarding data.
type CreateProfileCommand struct {
	// UserID identifies the new user.
	UserID string

	// Timezone is the user's IANA timezone; empty means UTC.
	Timezone string
}

// CreateProfileHandler handles profile onboarding.
type CreateProfileHandler struct {
	profiles profile.Repository
	streaks  *streak.Machine
	logger   *slog.Logger
}

// NewCreateProfileHandler creates the handler.
func NewCreateProfileHandler(profiles profile.Repository, streaks *streak.Machine, logger *slog.Logger) *CreateProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateProfileHandler{profiles: profiles, streaks: streaks, logger: logger}
}

// Handle creates the profile. Creating an existing profile fails with
// ErrProfileAlreadyExists; onboarding is not an upsert.
func (h *CreateProfileHandler) Handle(ctx context.Context, cmd CreateProfileCommand) (*profile.Profile, error) {
	p, err := profile.New(cmd.UserID, cmd.Timezone, h.streaks.Config().InitialFreezeTokens, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create_profile: %w", err)
	}

	if err := h.profiles.Create(ctx, p); err != nil {
		return nil, err
	}

	h.logger.Info("profile created", "user_id", p.UserID, "timezone", p.Timezone)
	return p, nil
}
