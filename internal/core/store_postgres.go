package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const overlaySchema = `
CREATE TABLE IF NOT EXISTS sheet_overlays (
    sheet_name TEXT PRIMARY KEY,
    record     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps one JSONB row per sheet. Save still writes the whole
// document, inside a single transaction, so readers never see half of it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call EnsureSchema before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the overlay table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, overlaySchema); err != nil {
		return fmt.Errorf("create sheet_overlays: %w", err)
	}
	return nil
}

// Load reads every sheet's record.
func (s *PostgresStore) Load(ctx context.Context) (Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT sheet_name, record FROM sheet_overlays`)
	if err != nil {
		return nil, fmt.Errorf("query sheet_overlays: %w", err)
	}
	defer rows.Close()

	doc := Document{}
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan sheet_overlays: %w", err)
		}

		rec := &OverlayRecord{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("%w: decode overlay for %q: %w", ErrCorruptDocument, name, err)
		}
		doc[name] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sheet_overlays: %w", err)
	}
	return doc, nil
}

// Save upserts every record and removes sheets absent from doc.
func (s *PostgresStore) Save(ctx context.Context, doc Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	names := make([]string, 0, len(doc))
	for name, rec := range doc {
		if rec == nil {
			rec = &OverlayRecord{}
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode overlay for %q: %w", name, err)
		}
		names = append(names, name)
		batch.Queue(`
			INSERT INTO sheet_overlays (sheet_name, record, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (sheet_name) DO UPDATE
			SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
			name, string(raw))
	}
	batch.Queue(`DELETE FROM sheet_overlays WHERE NOT (sheet_name = ANY($1))`, names)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write sheet_overlays: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
