package crud

import (
	"errors"

	"go.hackfix.me/strata/view"
)

// Mutator changes an object in the store. A nil object means a new one should
// be created. A non-nil Response short-circuits the service, e.g. to report
// validation errors.
type Mutator[T any] func(c *view.Context, obj *T) (*T, view.Response, error)

// Binder copies the validated form fields into obj. It returns a
// ValidationError if any field is invalid.
type Binder[T any] func(form *Form, obj *T) error

// FormMutator returns a mutator that decodes the request body, binds it to
// the object and saves it in store. Validation errors get a 400 Bad Request
// response with the field errors as details.
func FormMutator[T any](store Store[T], bind Binder[T]) Mutator[T] {
	return func(c *view.Context, obj *T) (*T, view.Response, error) {
		form, err := ParseForm(c.Request())
		if err != nil {
			return badRequest[T](c, err)
		}

		update := obj != nil
		if !update {
			obj = new(T)
		}

		if err = bind(form, obj); err != nil {
			return badRequest[T](c, err)
		}

		if err = store.Save(c.Context(), obj, update); err != nil {
			return nil, nil, err
		}

		return obj, nil, nil
	}
}

// DeleteMutator returns a mutator that deletes the object from store.
func DeleteMutator[T any](store Store[T]) Mutator[T] {
	return func(c *view.Context, obj *T) (*T, view.Response, error) {
		if err := store.Delete(c.Context(), obj); err != nil {
			return nil, nil, err
		}
		return obj, nil, nil
	}
}

func badRequest[T any](c *view.Context, err error) (*T, view.Response, error) {
	var verr ValidationError
	if !errors.As(err, &verr) {
		return nil, nil, err
	}

	resp, err := view.View400(verr.Details())(c)
	return nil, resp, err
}
