// Package jobs contains the engine's scheduled jobs.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/domain/streak"
)

// CacheInvalidator drops a cached profile after the sweep rewrites it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// StreakSweepJob expires streaks whose grace window has passed without
// activity. A user holding a freeze token keeps the streak at the cost of one
// token; otherwise the streak resets to zero and a broken-streak event is
// published so the app can notify the user.
//
// Expiry is otherwise lazy (the coordinator re-derives the streak on the next
// activity); the sweep exists so reminder and display surfaces never show a
// streak that is already dead.
type StreakSweepJob struct {
	profiles  profile.Repository
	machine   *streak.Machine
	publisher shared.EventPublisher
	cache     CacheInvalidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewStreakSweepJob creates the sweep. publisher and cache may be nil.
func NewStreakSweepJob(
	profiles profile.Repository,
	machine *streak.Machine,
	publisher shared.EventPublisher,
	cache CacheInvalidator,
	logger *slog.Logger,
) *StreakSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreakSweepJob{
		profiles:  profiles,
		machine:   machine,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Name implements scheduler.Job.
func (j *StreakSweepJob) Name() string { return "streak_sweep" }

// Description implements scheduler.Job.
func (j *StreakSweepJob) Description() string {
	return "expires streaks past their grace deadline, consuming freeze tokens where available"
}

// Run implements scheduler.Job. Per-user failures are logged and skipped; one
// bad profile must not stall the sweep.
func (j *StreakSweepJob) Run(ctx context.Context) error {
	profiles, err := j.profiles.ListWithActiveStreaks(ctx)
	if err != nil {
		return err
	}

	now := j.now()
	var expired, frozen int
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !j.machine.IsStreakBroken(p.LastActiveDate, now, p.Location()) {
			continue
		}

		wasFrozen, err := j.expire(ctx, p, now)
		if err != nil {
			// A version conflict means the user came back mid-sweep; their
			// next activity settles the streak, nothing to do here.
			if errors.Is(err, shared.ErrOptimisticLock) {
				j.logger.Debug("streak sweep: profile changed underneath, skipping", "user_id", p.UserID)
				continue
			}
			j.logger.Error("streak sweep: expire failed", "user_id", p.UserID, "error", err)
			continue
		}
		if wasFrozen {
			frozen++
		} else {
			expired++
		}
	}

	j.logger.Info("streak sweep finished",
		"checked", len(profiles),
		"expired", expired,
		"frozen", frozen,
	)
	return nil
}

// expire settles one broken streak: freeze it if a token is available,
// otherwise reset it to zero.
func (j *StreakSweepJob) expire(ctx context.Context, p *profile.Profile, now time.Time) (frozen bool, err error) {
	previous := p.StreakCount

	if p.FreezeTokens > 0 {
		if err := p.UseStreakFreeze(now); err != nil {
			return false, err
		}
		frozen = true
	} else {
		p.StreakCount = 0
	}
	p.UpdatedAt = now

	if err := j.profiles.Save(ctx, p, nil); err != nil {
		return false, err
	}

	if j.cache != nil {
		if err := j.cache.Invalidate(ctx, p.UserID); err != nil {
			j.logger.Warn("streak sweep: cache invalidation failed", "user_id", p.UserID, "error", err)
		}
	}

	if !frozen && j.publisher != nil {
		event := shared.NewStreakBrokenEvent(p.UserID, previous)
		if err := j.publisher.Publish(event); err != nil {
			j.logger.Warn("streak sweep: publish failed", "user_id", p.UserID, "error", err)
		}
	}
	return frozen, nil
}
