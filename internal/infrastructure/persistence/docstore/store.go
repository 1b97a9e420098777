// Package docstore defines the generic versioned document store the engine
// persists through: get/set/delete/batch on (collection, id) pairs with
// optimistic compare-and-swap on a per-document version counter.
//
// The engine owns no wire format; documents are opaque JSON. Backends live
// alongside this package (postgres) or in it (memory, for development and
// tests).
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrVersionConflict is returned when a write's expected version does
	// not match the stored version.
	ErrVersionConflict = errors.New("docstore: version conflict")

	// ErrAlreadyExists is returned when creating over an existing document.
	ErrAlreadyExists = errors.New("docstore: document already exists")
)

// Document is one stored record.
type Document struct {
	Collection string
	ID         string
	Data       []byte
	Version    uint64
	UpdatedAt  time.Time
}

// Write is one operation inside an atomic batch.
type Write struct {
	Collection string
	ID         string
	Data       []byte

	// ExpectedVersion guards the write: 0 means "must not exist" (create),
	// any other value is a compare-and-swap against the stored version.
	// Set SkipVersionCheck for blind upserts (badge progress counters,
	// which are already serialized by the owning profile's CAS).
	ExpectedVersion  uint64
	SkipVersionCheck bool

	// Delete removes the document instead of writing Data.
	Delete bool
}

// Store is the versioned document store contract.
type Store interface {
	// Get returns a document with its current version.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set writes a document guarded by expectedVersion (0 = create) and
	// returns the new version.
	Set(ctx context.Context, collection, id string, data []byte, expectedVersion uint64) (uint64, error)

	// Delete removes a document guarded by expectedVersion (0 = unguarded).
	Delete(ctx context.Context, collection, id string, expectedVersion uint64) error

	// ApplyBatch applies all writes atomically: either every write lands or
	// none do. Version guards are checked inside the same transaction.
	ApplyBatch(ctx context.Context, writes []Write) error

	// List returns every document in a collection. Collections here are
	// small and per-user (or the catalog); full scans are acceptable.
	List(ctx context.Context, collection string) ([]*Document, error)
}
