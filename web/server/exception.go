package server

import (
	"errors"
	"net/http"

	"go.hackfix.me/strata/db/types"
	"go.hackfix.me/strata/view"
)

// exceptionHandler renders the errors caught by the Exception layer, mapping
// database errors to client errors.
func exceptionHandler(c *view.Context) (view.Response, error) {
	err, _ := c.Value(view.ExceptionKey).(error)

	var (
		nrErr  types.NoResultError
		dupErr types.DuplicateError
		inErr  types.InvalidInputError
		refErr types.ReferenceError
	)
	switch {
	case errors.As(err, &nrErr):
		c.Set(view.ExceptionKey, view.NewError(http.StatusNotFound, nrErr.Error()))
	case errors.As(err, &dupErr):
		c.Set(view.ExceptionKey, view.NewError(http.StatusConflict, dupErr.Error()))
	case errors.As(err, &inErr):
		c.Set(view.ExceptionKey, view.NewError(http.StatusBadRequest, inErr.Error()))
	case errors.As(err, &refErr):
		c.Set(view.ExceptionKey, view.NewError(http.StatusBadRequest, refErr.Error()))
	}

	return view.DefaultExceptionHandler(c)
}
