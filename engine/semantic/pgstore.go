package semantic

import (
	"context"
	"fmt"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore searches fragments stored in a Postgres table with a pgvector
// embedding column. Similarity is cosine similarity, 1 - (a <=> b).
type PGStore struct {
	db    pgQuerier
	pool  *pgxpool.Pool
	name  string
	table string // sanitized
}

// OpenPG connects a pool to dsn and returns a PGStore over table.
func OpenPG(ctx context.Context, dsn, table string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("semantic: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("semantic: ping postgres: %w", err)
	}
	s := NewPGStore(pool, table)
	s.pool = pool
	return s, nil
}

// NewPGStore creates a PGStore over an existing pool, connection or transaction.
func NewPGStore(db pgQuerier, table string) *PGStore {
	return &PGStore{db: db, name: table, table: pgx.Identifier{table}.Sanitize()}
}

// Close closes the pool if the store opened it.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the vector extension, the fragment table and its sector
// index if they don't exist.
func (s *PGStore) EnsureSchema(ctx context.Context, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        uuid PRIMARY KEY,
			sector_id text NOT NULL,
			source_id text NOT NULL DEFAULT '',
			content   text NOT NULL,
			metadata  jsonb NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, s.table, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (sector_id)`, pgx.Identifier{s.name + "_sector_idx"}.Sanitize(), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("semantic: ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert stores records, replacing rows with the same id.
func (s *PGStore) Upsert(ctx context.Context, records []Record) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, sector_id, source_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			sector_id = EXCLUDED.sector_id,
			source_id = EXCLUDED.source_id,
			content   = EXCLUDED.content,
			metadata  = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, s.table)
	for _, r := range records {
		if r.SectorID == "" {
			return fmt.Errorf("semantic: upsert %s: %w", r.ID, ErrNoNamespace)
		}
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		if _, err := s.db.Exec(ctx, q, r.ID, r.SectorID, r.SourceID, r.Content, meta, pgvector.NewVector(r.Vector)); err != nil {
			return fmt.Errorf("semantic: upsert %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *PGStore) searchSQL() string {
	return fmt.Sprintf(`
		SELECT id::text, content, source_id, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		WHERE sector_id = $2 AND 1 - (embedding <=> $1::vector) >= $3
		ORDER BY embedding <=> $1::vector
		LIMIT $4`, s.table)
}

// Search returns up to limit fragments of the namespace sector whose cosine
// similarity to vector is at least minScore, best first.
func (s *PGStore) Search(ctx context.Context, vector []float32, namespace string, limit int, minScore float64) ([]domain.Fragment, error) {
	if namespace == "" {
		return nil, ErrNoNamespace
	}
	rows, err := s.db.Query(ctx, s.searchSQL(), pgvector.NewVector(vector), namespace, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", namespace, err)
	}
	defer rows.Close()

	fragments := make([]domain.Fragment, 0)
	for rows.Next() {
		var f domain.Fragment
		var meta map[string]any
		if err := rows.Scan(&f.ID, &f.Content, &f.SourceID, &meta, &f.Similarity); err != nil {
			return nil, fmt.Errorf("semantic: scan fragment: %w", err)
		}
		if len(meta) > 0 {
			f.Metadata = meta
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", namespace, err)
	}
	return fragments, nil
}
