package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
)

// DocumentStore implements docstore.Store over the documents table.
type DocumentStore struct {
	conn *Connection
}

// NewDocumentStore creates a DocumentStore.
func NewDocumentStore(conn *Connection) *DocumentStore {
	return &DocumentStore{conn: conn}
}

// Get implements docstore.Store.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	query := `
		SELECT data, version, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	doc := docstore.Document{Collection: collection, ID: id}
	err := s.conn.QueryRow(ctx, query, collection, id).Scan(&doc.Data, &doc.Version, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get document %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

// Set implements docstore.Store.
func (s *DocumentStore) Set(ctx context.Context, collection, id string, data []byte, expectedVersion uint64) (uint64, error) {
	var version uint64
	err := s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		v, err := setInTx(ctx, tx, docstore.Write{
			Collection:      collection,
			ID:              id,
			Data:            data,
			ExpectedVersion: expectedVersion,
		})
		version = v
		return err
	})
	return version, err
}

// Delete implements docstore.Store.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string, expectedVersion uint64) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return deleteInTx(ctx, tx, collection, id, expectedVersion)
	})
}

// ApplyBatch implements docstore.Store. All writes run in one transaction;
// any guard failure rolls the whole batch back.
func (s *DocumentStore) ApplyBatch(ctx context.Context, writes []docstore.Write) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, w := range writes {
			if w.Delete {
				if err := deleteInTx(ctx, tx, w.Collection, w.ID, w.ExpectedVersion); err != nil {
					return err
				}
				continue
			}
			if w.SkipVersionCheck {
				if err := upsertInTx(ctx, tx, w); err != nil {
					return err
				}
				continue
			}
			if _, err := setInTx(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// List implements docstore.Store.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]*docstore.Document, error) {
	query := `
		SELECT id, data, version, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`

	rows, err := s.conn.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make([]*docstore.Document, 0)
	for rows.Next() {
		doc := docstore.Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.Version, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		out = append(out, &doc)
	}
	return out, rows.Err()
}

func setInTx(ctx context.Context, tx pgx.Tx, w docstore.Write) (uint64, error) {
	now := time.Now().UTC()

	if w.ExpectedVersion == 0 {
		query := `
			INSERT INTO documents (collection, id, data, version, updated_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (collection, id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, query, w.Collection, w.ID, w.Data, now)
		if err != nil {
			return 0, fmt.Errorf("postgres: insert document %s/%s: %w", w.Collection, w.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, docstore.ErrAlreadyExists
		}
		return 1, nil
	}

	query := `
		UPDATE documents
		SET data = $3, version = version + 1, updated_at = $4
		WHERE collection = $1 AND id = $2 AND version = $5
	`
	tag, err := tx.Exec(ctx, query, w.Collection, w.ID, w.Data, now, w.ExpectedVersion)
	if err != nil {
		return 0, fmt.Errorf("postgres: update document %s/%s: %w", w.Collection, w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing document from a moved version.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`,
			w.Collection, w.ID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("postgres: check document %s/%s: %w", w.Collection, w.ID, err)
		}
		if !exists {
			return 0, docstore.ErrNotFound
		}
		return 0, docstore.ErrVersionConflict
	}
	return w.ExpectedVersion + 1, nil
}

func upsertInTx(ctx context.Context, tx pgx.Tx, w docstore.Write) error {
	query := `
		INSERT INTO documents (collection, id, data, version, updated_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, query, w.Collection, w.ID, w.Data, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres: upsert document %s/%s: %w", w.Collection, w.ID, err)
	}
	return nil
}

func deleteInTx(ctx context.Context, tx pgx.Tx, collection, id string, expectedVersion uint64) error {
	if expectedVersion == 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
			return fmt.Errorf("postgres: delete document %s/%s: %w", collection, id, err)
		}
		return nil
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2 AND version = $3`,
		collection, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("postgres: delete document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrVersionConflict
	}
	return nil
}
