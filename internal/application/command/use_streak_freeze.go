package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// USE STREAK FREEZE COMMAND
// Explicit token spend from the app UI, distinct from the automatic
// consumption the sweep and the streak machine perform.
// ══════════════════════════════════════════════════════════════════════════════

// UseStreakFreezeResult describes the spend.
type UseStreakFreezeResult struct {
	// Profile is the committed post-spend state.
	Profile *profile.Profile

	// TokensRemaining is the balance after the spend.
	TokensRemaining int
}

// UseStreakFreezeHandler handles manual freeze-token spends.
type UseStreakFreezeHandler struct {
	profiles profile.Repository
	cache    CacheInvalidator
	logger   *slog.Logger
	retrier  *retry.Retrier
}

// NewUseStreakFreezeHandler creates the handler. cache may be nil.
func NewUseStreakFreezeHandler(profiles profile.Repository, cache CacheInvalidator, logger *slog.Logger) *UseStreakFreezeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UseStreakFreezeHandler{
		profiles: profiles,
		cache:    cache,
		logger:   logger,
		retrier:  retry.ConflictRetrier(shared.IsConflict),
	}
}

// Handle spends one token. A zero balance is the expected business outcome
// ErrInsufficientTokens, not an infrastructure failure.
func (h *UseStreakFreezeHandler) Handle(ctx context.Context, userID string) (*UseStreakFreezeResult, error) {
	if userID == "" {
		return nil, shared.ErrInvalidUserID
	}

	var result *UseStreakFreezeResult
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		p, err := h.profiles.Get(ctx, userID)
		if err != nil {
			return retry.Permanent(err)
		}
		if err := p.UseStreakFreeze(time.Now().UTC()); err != nil {
			return retry.Permanent(err)
		}
		p.UpdatedAt = time.Now().UTC()
		if err := h.profiles.Save(ctx, p, nil); err != nil {
			return err
		}
		result = &UseStreakFreezeResult{Profile: p, TokensRemaining: p.FreezeTokens}
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.ErrConflictRetriesExhausted
		}
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, userID); err != nil {
			h.logger.Warn("use_streak_freeze: cache invalidation failed", "user_id", userID, "error", err)
		}
	}

	h.logger.Info("streak freeze used", "user_id", userID, "tokens_remaining", result.TokensRemaining)
	return result, nil
}
