package crud

import (
	"fmt"
	"strconv"

	"go.hackfix.me/strata/view"
)

const (
	// MetaKey is the default Context key of the list metadata map.
	MetaKey = "__meta__"

	// DefaultLimit is the page size used when the request doesn't set one.
	DefaultLimit = 10
	// MaxLimit is the largest page size a request can ask for.
	MaxLimit = 500
)

// Filterer narrows down the query that selects the objects a service works
// on. Filterers run in order, starting from a nil query.
type Filterer func(c *view.Context, q *Query) (*Query, error)

// All returns a filterer that selects all objects.
func All() Filterer {
	return func(_ *view.Context, _ *Query) (*Query, error) {
		return &Query{}, nil
	}
}

// PK returns a filterer that selects the object whose primary key is the
// Context value under key, e.g. a path wildcard.
func PK(key string) Filterer {
	return func(c *view.Context, q *Query) (*Query, error) {
		pk, ok := c.Get(key)
		if !ok {
			return nil, fmt.Errorf("missing primary key '%s'", key)
		}
		return q.And("id = ?", pk), nil
	}
}

// Where returns a filterer that adds a fixed condition to the query.
func Where(where string, args ...any) Filterer {
	return func(_ *view.Context, q *Query) (*Query, error) {
		return q.And(where, args...), nil
	}
}

// LimitOffset returns a filterer that pages the query using the limit and
// offset query string parameters. Missing, invalid or non-positive limits fall
// back to DefaultLimit, invalid offsets to 0, and the limit is capped at
// MaxLimit.
func LimitOffset(limitParam, offsetParam string) Filterer {
	return func(c *view.Context, q *Query) (*Query, error) {
		params := c.Request().URL.Query()

		limit, err := strconv.Atoi(params.Get(limitParam))
		if err != nil || limit <= 0 {
			limit = DefaultLimit
		}
		limit = min(limit, MaxLimit)

		offset, err := strconv.Atoi(params.Get(offsetParam))
		if err != nil || offset < 0 {
			offset = 0
		}

		return q.Page(limit, offset), nil
	}
}

// MetaCount returns a filterer that stores the number of objects matching the
// query under "count" in the metadata map at metaKey. It should run before
// LimitOffset, though paging is ignored either way.
func MetaCount[T any](store Store[T], metaKey string) Filterer {
	return func(c *view.Context, q *Query) (*Query, error) {
		n, err := store.Count(c.Context(), q.Unpaged())
		if err != nil {
			return nil, err
		}

		meta, ok := view.Lookup[map[string]any](c, metaKey)
		if !ok {
			meta = map[string]any{}
		}
		meta["count"] = n
		c.Set(metaKey, meta)

		return q, nil
	}
}

func applyFilters(c *view.Context, filterers []Filterer) (*Query, error) {
	var (
		q   *Query
		err error
	)
	for _, f := range filterers {
		if q, err = f(c, q); err != nil {
			return nil, err
		}
	}

	return q, nil
}
