// Package semantic implements vector search over sector-scoped fragments.
// VectorStore is backed by Qdrant, PGStore by Postgres with pgvector. Both
// treat the sector id as a hard namespace: every query is filtered by it.
package semantic

import "errors"

// ErrNoNamespace is returned when a search or write names no sector.
var ErrNoNamespace = errors.New("semantic: namespace is required")

// Payload keys shared by both backends.
const (
	keySector  = "sector_id"
	keyContent = "content"
	keySource  = "source_id"
)

// Record is a fragment to index under a sector.
type Record struct {
	ID       string // UUID
	SectorID string
	SourceID string
	Content  string
	Vector   []float32
	Metadata map[string]any
}
