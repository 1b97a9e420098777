package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	version, err := s.Set(ctx, "users", "u1", []byte(`{"a":1}`), 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	doc, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), doc.Data)
	assert.Equal(t, uint64(1), doc.Version)

	_, err = s.Get(ctx, "users", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CreateOverExistingFails(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{}`), 0)
	assert.NoError(t, err)

	_, err = s.Set(ctx, "users", "u1", []byte(`{}`), 0)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{"v":1}`), 0)
	assert.NoError(t, err)

	version, err := s.Set(ctx, "users", "u1", []byte(`{"v":2}`), 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	// A stale expected version is rejected and nothing changes.
	_, err = s.Set(ctx, "users", "u1", []byte(`{"v":9}`), 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	doc, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), doc.Data)

	_, err = s.Set(ctx, "users", "missing", []byte(`{}`), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{}`), 0)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, "users", "u1", 7), ErrVersionConflict)
	assert.NoError(t, s.Delete(ctx, "users", "u1", 1))
	assert.ErrorIs(t, s.Delete(ctx, "users", "u1", 0), ErrNotFound)
}

func TestMemoryStore_ApplyBatch_Atomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{"v":1}`), 0)
	assert.NoError(t, err)

	// The second write's guard fails, so the first must not land either.
	err = s.ApplyBatch(ctx, []Write{
		{Collection: "users/u1/progress", ID: "lessons_10", Data: []byte(`{"n":1}`), SkipVersionCheck: true},
		{Collection: "users", ID: "u1", Data: []byte(`{"v":2}`), ExpectedVersion: 99},
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = s.Get(ctx, "users/u1/progress", "lessons_10")
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), doc.Data)
}

func TestMemoryStore_ApplyBatch_MixedWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{"v":1}`), 0)
	assert.NoError(t, err)
	_, err = s.Set(ctx, "users", "gone", []byte(`{}`), 0)
	assert.NoError(t, err)

	err = s.ApplyBatch(ctx, []Write{
		{Collection: "users", ID: "u1", Data: []byte(`{"v":2}`), ExpectedVersion: 1},
		{Collection: "users/u1/progress", ID: "streak_7", Data: []byte(`{"n":6}`), SkipVersionCheck: true},
		{Collection: "users", ID: "u2", Data: []byte(`{"new":true}`), ExpectedVersion: 0},
		{Collection: "users", ID: "gone", Delete: true},
	})
	assert.NoError(t, err)

	doc, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), doc.Version)

	_, err = s.Get(ctx, "users", "u2")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "users", "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List_SortedAndScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Set(ctx, "badges/definitions", id, []byte(`{}`), 0)
		assert.NoError(t, err)
	}
	_, err := s.Set(ctx, "users", "u1", []byte(`{}`), 0)
	assert.NoError(t, err)

	docs, err := s.List(ctx, "badges/definitions")
	assert.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[2].ID)

	empty, err := s.List(ctx, "nothing")
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_Get_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{"v":1}`), 0)
	assert.NoError(t, err)

	doc, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	doc.Data[2] = 'x'

	fresh, err := s.Get(ctx, "users", "u1")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), fresh.Data)
}

func TestMemoryStore_ConcurrentCAS_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Set(ctx, "users", "u1", []byte(`{"v":1}`), 0)
	assert.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Set(ctx, "users", "u1", []byte(`{"v":2}`), 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrVersionConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}
