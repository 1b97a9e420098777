package badge

import (
	"context"
	"sort"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// CatalogRepository loads badge definitions from the read-only store
// collection. Implementations live in infrastructure/persistence.
type CatalogRepository interface {
	// LoadAll returns every authored definition.
	LoadAll(ctx context.Context) ([]Definition, error)

	// SeedDefaults writes the given definitions in one atomic batch if the
	// collection is empty. Used at startup in environments without an
	// external catalog author.
	SeedDefaults(ctx context.Context, defs []Definition) error
}

// ProgressRepository reads per-user badge progress counters. Writes happen
// through the profile repository's atomic save, alongside the profile CAS.
type ProgressRepository interface {
	// ListForUser returns all progress counters for a user, keyed by badge ID.
	ListForUser(ctx context.Context, userID string) (map[string]*Progress, error)
}

// Catalog is the in-memory, immutable badge catalog.
type Catalog struct {
	byID    map[string]Definition
	ordered []Definition
}

// NewCatalog builds a catalog from definitions, rejecting invalid or
// duplicate entries. An empty input is an error: the engine cannot run
// without a catalog.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, shared.ErrEmptyCatalog
	}

	byID := make(map[string]Definition, len(defs))
	ordered := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, shared.WrapError("badge", "NewCatalog", shared.ErrInvalidInput, "definition "+d.ID, err)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, shared.NewDomainError("badge", "NewCatalog", shared.ErrAlreadyExists, "duplicate badge ID "+d.ID)
		}
		byID[d.ID] = d
		ordered = append(ordered, d)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &Catalog{byID: byID, ordered: ordered}, nil
}

// Get returns a definition by ID.
func (c *Catalog) Get(id string) (Definition, error) {
	d, ok := c.byID[id]
	if !ok {
		return Definition{}, shared.ErrBadgeNotFound
	}
	return d, nil
}

// All returns every definition, ordered by ID.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Active returns every active definition.
func (c *Catalog) Active() []Definition {
	out := make([]Definition, 0, len(c.ordered))
	for _, d := range c.ordered {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out
}

// ByCategory returns active definitions in a category.
func (c *Catalog) ByCategory(category Category) []Definition {
	out := make([]Definition, 0)
	for _, d := range c.ordered {
		if d.IsActive && d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ListeningTo returns active definitions whose criteria match an event type.
func (c *Catalog) ListeningTo(eventType shared.EventType) []Definition {
	out := make([]Definition, 0)
	for _, d := range c.ordered {
		if d.IsActive && d.Criteria.EventType == eventType {
			out = append(out, d)
		}
	}
	return out
}

// AvailableTo returns active definitions the user has not yet earned.
// held is the user's award set keyed by badge ID.
func (c *Catalog) AvailableTo(held map[string]Award) []Definition {
	out := make([]Definition, 0)
	for _, d := range c.ordered {
		if !d.IsActive {
			continue
		}
		if _, earned := held[d.ID]; earned {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Size returns the number of definitions in the catalog.
func (c *Catalog) Size() int {
	return len(c.ordered)
}
