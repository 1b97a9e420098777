package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/linguaquest/gamification-engine/internal/domain/badge"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
)

// CatalogRepository implements badge.CatalogRepository over a docstore.Store.
type CatalogRepository struct {
	store docstore.Store
}

// NewCatalogRepository creates a CatalogRepository.
func NewCatalogRepository(store docstore.Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

// LoadAll implements badge.CatalogRepository.
func (r *CatalogRepository) LoadAll(ctx context.Context) ([]badge.Definition, error) {
	docs, err := r.store.List(ctx, CollectionCatalog)
	if err != nil {
		return nil, shared.WrapError("badge", "LoadAll", shared.ErrStoreUnavailable, "list catalog", err)
	}

	defs := make([]badge.Definition, 0, len(docs))
	for _, doc := range docs {
		var d badge.Definition
		if err := json.Unmarshal(doc.Data, &d); err != nil {
			return nil, shared.WrapError("badge", "LoadAll", shared.ErrInvalidState, "decode definition "+doc.ID, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// SeedDefaults implements badge.CatalogRepository: writes the definitions in
// one atomic batch, but only when the collection is still empty. A populated
// catalog is authored externally and never overwritten.
func (r *CatalogRepository) SeedDefaults(ctx context.Context, defs []badge.Definition) error {
	existing, err := r.store.List(ctx, CollectionCatalog)
	if err != nil {
		return shared.WrapError("badge", "SeedDefaults", shared.ErrStoreUnavailable, "list catalog", err)
	}
	if len(existing) > 0 {
		return nil
	}

	writes := make([]docstore.Write, 0, len(defs))
	for _, d := range defs {
		data, err := json.Marshal(d)
		if err != nil {
			return shared.WrapError("badge", "SeedDefaults", shared.ErrInvalidInput, "encode definition "+d.ID, err)
		}
		writes = append(writes, docstore.Write{
			Collection:      CollectionCatalog,
			ID:              d.ID,
			Data:            data,
			ExpectedVersion: 0,
		})
	}

	err = r.store.ApplyBatch(ctx, writes)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		// Another instance seeded concurrently; the catalog is in place.
		return nil
	}
	if err != nil {
		return shared.WrapError("badge", "SeedDefaults", shared.ErrStoreUnavailable, "seed catalog", err)
	}
	return nil
}

// ProgressRepository implements badge.ProgressRepository over a
// docstore.Store.
type ProgressRepository struct {
	store docstore.Store
}

// NewProgressRepository creates a ProgressRepository.
func NewProgressRepository(store docstore.Store) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// ListForUser implements badge.ProgressRepository.
func (r *ProgressRepository) ListForUser(ctx context.Context, userID string) (map[string]*badge.Progress, error) {
	docs, err := r.store.List(ctx, ProgressCollection(userID))
	if err != nil {
		return nil, shared.WrapError("badge", "ListForUser", shared.ErrStoreUnavailable, "list progress", err)
	}

	out := make(map[string]*badge.Progress, len(docs))
	for _, doc := range docs {
		var p badge.Progress
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, shared.WrapError("badge", "ListForUser", shared.ErrInvalidState, "decode progress "+doc.ID, err)
		}
		out[p.BadgeID] = &p
	}
	return out, nil
}
