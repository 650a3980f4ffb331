// Package repo defines a generic keyed repository and its Neo4j implementation.
package repo

import "context"

// Repository stores entities of one kind under a non-unique key.
type Repository[T any, K comparable] interface {
	List(ctx context.Context, opts ListOpts) ([]T, error)
	CreateAll(ctx context.Context, entities []T) error
	UpdateWhere(ctx context.Context, key K, props map[string]any) (int, error)
	DeleteWhere(ctx context.Context, key K) (int, error)
}

// ListOpts controls List. A Limit of zero or less returns every entity.
type ListOpts struct {
	Offset int
	Limit  int
}
