// Package repo provides read-only generic access to labelled Neo4j nodes.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no node has the requested id.
var ErrNotFound = errors.New("repo: not found")

// Reader is a generic read-only repository.
type Reader[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
}

// ListOpts controls pagination and filtering for List operations. Filter keys
// are node properties matched for equality.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
