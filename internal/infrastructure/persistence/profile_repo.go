// Package persistence implements the domain repository contracts over the
// generic versioned document store, independent of the store backend.
//
// Collections:
//
//	users                      one profile document per user
//	users/{userID}/progress    one document per badge progress counter
//	badges/definitions         the read-only badge catalog
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
)

const (
	// CollectionProfiles holds one profile document per user.
	CollectionProfiles = "users"

	// CollectionCatalog holds the read-only badge definitions.
	CollectionCatalog = "badges/definitions"
)

// ProgressCollection returns the per-user badge progress collection name.
func ProgressCollection(userID string) string {
	return fmt.Sprintf("users/%s/progress", userID)
}

// ProfileRepository implements profile.Repository over a docstore.Store.
type ProfileRepository struct {
	store docstore.Store
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(store docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Get implements profile.Repository.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	doc, err := r.store.Get(ctx, CollectionProfiles, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, shared.WrapError("profile", "Get", shared.ErrStoreUnavailable, "load profile", err)
	}

	var p profile.Profile
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		return nil, shared.WrapError("profile", "Get", shared.ErrInvalidState, "decode profile", err)
	}
	// The store version is authoritative over whatever was serialized.
	p.Version = doc.Version
	return &p, nil
}

// Create implements profile.Repository.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return shared.WrapError("profile", "Create", shared.ErrInvalidInput, "encode profile", err)
	}

	version, err := r.store.Set(ctx, CollectionProfiles, p.UserID, data, 0)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return shared.ErrProfileAlreadyExists
	}
	if err != nil {
		return shared.WrapError("profile", "Create", shared.ErrStoreUnavailable, "create profile", err)
	}
	p.Version = version
	return nil
}

// Save implements profile.Repository: the profile CAS write and any badge
// progress upserts land in one atomic batch. Progress documents carry no
// guard of their own; the profile's version already serializes every write
// for the user.
func (r *ProfileRepository) Save(ctx context.Context, p *profile.Profile, progress []*badge.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return shared.WrapError("profile", "Save", shared.ErrInvalidInput, "encode profile", err)
	}

	writes := make([]docstore.Write, 0, 1+len(progress))
	writes = append(writes, docstore.Write{
		Collection:      CollectionProfiles,
		ID:              p.UserID,
		Data:            data,
		ExpectedVersion: p.Version,
	})

	for _, pr := range progress {
		prData, err := json.Marshal(pr)
		if err != nil {
			return shared.WrapError("profile", "Save", shared.ErrInvalidInput, "encode progress", err)
		}
		writes = append(writes, docstore.Write{
			Collection:       ProgressCollection(p.UserID),
			ID:               pr.BadgeID,
			Data:             prData,
			SkipVersionCheck: true,
		})
	}

	err = r.store.ApplyBatch(ctx, writes)
	if errors.Is(err, docstore.ErrVersionConflict) {
		return shared.ErrOptimisticLock
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return shared.ErrProfileNotFound
	}
	if err != nil {
		return shared.WrapError("profile", "Save", shared.ErrStoreUnavailable, "persist profile", err)
	}
	p.Version++
	return nil
}

// Delete implements profile.Repository: removes the profile and every
// progress document in one batch.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	progressDocs, err := r.store.List(ctx, ProgressCollection(userID))
	if err != nil {
		return shared.WrapError("profile", "Delete", shared.ErrStoreUnavailable, "list progress", err)
	}

	writes := make([]docstore.Write, 0, 1+len(progressDocs))
	writes = append(writes, docstore.Write{
		Collection: CollectionProfiles,
		ID:         userID,
		Delete:     true,
	})
	for _, doc := range progressDocs {
		writes = append(writes, docstore.Write{
			Collection: ProgressCollection(userID),
			ID:         doc.ID,
			Delete:     true,
		})
	}

	if err := r.store.ApplyBatch(ctx, writes); err != nil {
		return shared.WrapError("profile", "Delete", shared.ErrStoreUnavailable, "delete profile", err)
	}
	return nil
}

// ListWithActiveStreaks implements profile.Repository.
func (r *ProfileRepository) ListWithActiveStreaks(ctx context.Context) ([]*profile.Profile, error) {
	docs, err := r.store.List(ctx, CollectionProfiles)
	if err != nil {
		return nil, shared.WrapError("profile", "ListWithActiveStreaks", shared.ErrStoreUnavailable, "list profiles", err)
	}

	out := make([]*profile.Profile, 0)
	for _, doc := range docs {
		var p profile.Profile
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			continue // skip corrupt documents, the sweep must not stall
		}
		if p.StreakCount > 0 {
			p.Version = doc.Version
			out = append(out, &p)
		}
	}
	return out, nil
}
