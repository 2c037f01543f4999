package crud

import (
	"context"
)

// Store persists objects of type T.
type Store[T any] interface {
	// Find returns the objects matching q. A nil q matches all objects.
	Find(ctx context.Context, q *Query) ([]*T, error)
	// Count returns the number of objects matching q, ignoring its limit and
	// offset.
	Count(ctx context.Context, q *Query) (int, error)
	// Save inserts obj, or updates it if update is true.
	Save(ctx context.Context, obj *T, update bool) error
	// Delete removes obj.
	Delete(ctx context.Context, obj *T) error
}
