package crud

import (
	"net/http"

	"go.hackfix.me/strata/view"
)

// Detail returns a service that responds with the first object selected by
// the filterers, or 404 Not Found if there is none.
func Detail[T any](store Store[T], serialize Serializer[T], filterers ...Filterer) view.Service {
	return func(c *view.Context) (view.Response, error) {
		obj, err := findOne(c, store, filterers)
		if err != nil || obj == nil {
			return notFound(c, err)
		}

		return serialized(http.StatusOK, serialize, c, obj)
	}
}

// List returns a service that responds with the objects selected by the
// filterers.
func List[T any](store Store[T], serialize ListSerializer[T], filterers ...Filterer) view.Service {
	return func(c *view.Context) (view.Response, error) {
		q, err := applyFilters(c, filterers)
		if err != nil {
			return nil, err
		}

		objs, err := store.Find(c.Context(), q)
		if err != nil {
			return nil, err
		}

		ct, body, err := serialize(c, objs)
		if err != nil {
			return nil, err
		}

		return view.NewResponse(http.StatusOK, ct, body), nil
	}
}

// Create returns a service that creates an object with mutate, and responds
// with it and 201 Created.
func Create[T any](mutate Mutator[T], serialize Serializer[T]) view.Service {
	return func(c *view.Context) (view.Response, error) {
		obj, resp, err := mutate(c, nil)
		if err != nil || resp != nil {
			return resp, err
		}

		return serialized(http.StatusCreated, serialize, c, obj)
	}
}

// Update returns a service that changes the first object selected by the
// filterers with mutate, and responds with it. It responds with 404 Not Found
// if no object is selected.
func Update[T any](mutate Mutator[T], serialize Serializer[T], store Store[T], filterers ...Filterer) view.Service {
	return func(c *view.Context) (view.Response, error) {
		obj, err := findOne(c, store, filterers)
		if err != nil || obj == nil {
			return notFound(c, err)
		}

		obj, resp, err := mutate(c, obj)
		if err != nil || resp != nil {
			return resp, err
		}

		return serialized(http.StatusOK, serialize, c, obj)
	}
}

// Delete returns a service that removes the first object selected by the
// filterers with mutate, and responds with 204 No Content. It responds with
// 404 Not Found if no object is selected.
func Delete[T any](mutate Mutator[T], store Store[T], filterers ...Filterer) view.Service {
	return func(c *view.Context) (view.Response, error) {
		obj, err := findOne(c, store, filterers)
		if err != nil || obj == nil {
			return notFound(c, err)
		}

		if _, resp, err := mutate(c, obj); err != nil || resp != nil {
			return resp, err
		}

		return view.View204(c)
	}
}

func findOne[T any](c *view.Context, store Store[T], filterers []Filterer) (*T, error) {
	q, err := applyFilters(c, filterers)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = &Query{}
	}
	if q.Limit == 0 {
		q = q.Page(1, q.Offset)
	}

	objs, err := store.Find(c.Context(), q)
	if err != nil || len(objs) == 0 {
		return nil, err
	}

	return objs[0], nil
}

//nolint:ireturn // Canned response.
func notFound(c *view.Context, err error) (view.Response, error) {
	if err != nil {
		return nil, err
	}
	return view.View404(c)
}

//nolint:ireturn // Services return the Response interface.
func serialized[T any](status int, serialize Serializer[T], c *view.Context, obj *T) (view.Response, error) {
	ct, body, err := serialize(c, obj)
	if err != nil {
		return nil, err
	}
	return view.NewResponse(status, ct, body), nil
}
