// Package sector resolves sector ids to their descriptions. Sectors are the
// namespaces fragments are searched in; their records live in Neo4j as
// (:Sector {id, name, description}) nodes.
package sector

import (
	"context"
	"fmt"

	"github.com/WessleyAI/sector-rag/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Sector is a knowledge area owning a set of fragments.
type Sector struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Directory looks sectors up by id.
type Directory struct {
	repo repo.Reader[Sector, string]
}

// NewDirectory creates a Directory backed by Neo4j.
func NewDirectory(driver neo4j.DriverWithContext) *Directory {
	return NewDirectoryWithReader(repo.NewNeo4jRepo[Sector, string](driver, "Sector", fromRecord))
}

// NewDirectoryWithReader creates a Directory over any sector reader.
func NewDirectoryWithReader(r repo.Reader[Sector, string]) *Directory {
	return &Directory{repo: r}
}

// Get returns the sector with the given id.
func (d *Directory) Get(ctx context.Context, id string) (Sector, error) {
	s, err := d.repo.Get(ctx, id)
	if err != nil {
		return Sector{}, fmt.Errorf("sector: get %s: %w", id, err)
	}
	return s, nil
}

// List returns up to limit sectors, ordered by id.
func (d *Directory) List(ctx context.Context, offset, limit int) ([]Sector, error) {
	sectors, err := d.repo.List(ctx, repo.ListOpts{Offset: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("sector: list: %w", err)
	}
	return sectors, nil
}

// SectorName returns the display name of a sector, falling back to its id
// when the node has no name.
func (d *Directory) SectorName(ctx context.Context, id string) (string, error) {
	s, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.Name == "" {
		return s.ID, nil
	}
	return s.Name, nil
}

func fromRecord(rec *neo4j.Record) (Sector, error) {
	props, err := repo.NodeProps(rec)
	if err != nil {
		return Sector{}, err
	}
	return Sector{
		ID:          str(props, "id"),
		Name:        str(props, "name"),
		Description: str(props, "description"),
	}, nil
}

func str(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}
