// Package repo defines keyed storage over graph nodes.
package repo

import "context"

// Key identifies an entity by one or more properties, e.g. make and code.
type Key map[string]any

// Keyed is storage for entities with a composite natural key. Merge never
// overwrites an existing entity.
type Keyed[T any] interface {
	Get(ctx context.Context, key Key) (T, bool, error)
	Merge(ctx context.Context, entity T) (created bool, err error)
	Count(ctx context.Context, filter Key) (int64, error)
}
