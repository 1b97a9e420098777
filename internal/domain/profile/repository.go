package profile

import (
	"context"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
)

// Repository is the persistence contract for gamification profiles.
// Implementations live in infrastructure/persistence and are backed by the
// versioned document store.
type Repository interface {
	// Get returns a profile with its current store version.
	// Returns ErrProfileNotFound if absent; the engine never auto-creates.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Create persists a new profile at version 1.
	// Returns ErrProfileAlreadyExists on conflict.
	Create(ctx context.Context, p *Profile) error

	// Save persists the profile and any badge-progress updates in one
	// atomic write, guarded by the profile's Version (compare-and-swap).
	// Returns ErrOptimisticLock when the stored version has moved; on
	// success the profile's Version is incremented in place.
	Save(ctx context.Context, p *Profile, progress []*badge.Progress) error

	// Delete removes the profile and its progress documents. Used only by
	// account deletion.
	Delete(ctx context.Context, userID string) error

	// ListWithActiveStreaks returns every profile with StreakCount > 0.
	// The streak sweep job consumes this.
	ListWithActiveStreaks(ctx context.Context) ([]*Profile, error)
}
