package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation with the same CAS
// semantics as the postgres backend. Used in tests and in development
// environments running without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document // key: collection + "\x00" + id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func key(collection, id string) string {
	return collection + "\x00" + id
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, collection, id string, data []byte, expectedVersion uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setLocked(collection, id, data, expectedVersion, false)
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, collection, id string, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(collection, id, expectedVersion)
}

// ApplyBatch implements Store. All guards are checked before any write is
// applied, so a failed batch leaves the store untouched.
func (s *MemoryStore) ApplyBatch(_ context.Context, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		if w.SkipVersionCheck {
			continue
		}
		doc, exists := s.docs[key(w.Collection, w.ID)]
		if w.Delete {
			if exists && w.ExpectedVersion != 0 && doc.Version != w.ExpectedVersion {
				return ErrVersionConflict
			}
			continue
		}
		if w.ExpectedVersion == 0 {
			if exists {
				return ErrAlreadyExists
			}
			continue
		}
		if !exists {
			return ErrNotFound
		}
		if doc.Version != w.ExpectedVersion {
			return ErrVersionConflict
		}
	}

	for _, w := range writes {
		if w.Delete {
			_ = s.deleteLocked(w.Collection, w.ID, 0)
			continue
		}
		if w.SkipVersionCheck {
			s.upsertLocked(w.Collection, w.ID, w.Data)
			continue
		}
		if _, err := s.setLocked(w.Collection, w.ID, w.Data, w.ExpectedVersion, false); err != nil {
			// Guards were verified above; reaching this means a bug.
			return err
		}
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, collection string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collection + "\x00"
	out := make([]*Document, 0)
	for k, doc := range s.docs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, copyDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) setLocked(collection, id string, data []byte, expectedVersion uint64, upsert bool) (uint64, error) {
	k := key(collection, id)
	doc, exists := s.docs[k]

	if !upsert {
		if expectedVersion == 0 && exists {
			return 0, ErrAlreadyExists
		}
		if expectedVersion != 0 {
			if !exists {
				return 0, ErrNotFound
			}
			if doc.Version != expectedVersion {
				return 0, ErrVersionConflict
			}
		}
	}

	var version uint64 = 1
	if exists {
		version = doc.Version + 1
	}
	s.docs[k] = &Document{
		Collection: collection,
		ID:         id,
		Data:       append([]byte(nil), data...),
		Version:    version,
		UpdatedAt:  time.Now().UTC(),
	}
	return version, nil
}

func (s *MemoryStore) upsertLocked(collection, id string, data []byte) {
	_, _ = s.setLocked(collection, id, data, 0, true)
}

func (s *MemoryStore) deleteLocked(collection, id string, expectedVersion uint64) error {
	k := key(collection, id)
	doc, exists := s.docs[k]
	if !exists {
		return ErrNotFound
	}
	if expectedVersion != 0 && doc.Version != expectedVersion {
		return ErrVersionConflict
	}
	delete(s.docs, k)
	return nil
}

func copyDoc(doc *Document) *Document {
	c := *doc
	c.Data = append([]byte(nil), doc.Data...)
	return &c
}
