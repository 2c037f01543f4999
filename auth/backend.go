package auth

import (
	"errors"

	"go.hackfix.me/strata/view"
)

// ErrInvalidCredentials is returned by backends when the request carries
// credentials they can't verify. Authentication treats it the same as a nil
// User.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials are the Context values passed to a Backend, keyed by the
// credential keys configured on the Authentication layer.
type Credentials map[string]any

// Backend authenticates a request. It returns a nil User if it can't
// authenticate the request, so that other backends can be tried.
type Backend interface {
	Authenticate(c *view.Context, creds Credentials) (User, error)
}

// BackendFunc adapts a function into a Backend.
type BackendFunc func(c *view.Context, creds Credentials) (User, error)

var _ Backend = BackendFunc(nil)

// Authenticate calls fn.
//
//nolint:ireturn // Implementations vary per backend.
func (fn BackendFunc) Authenticate(c *view.Context, creds Credentials) (User, error) {
	return fn(c, creds)
}

// Backends tries each backend in order, and returns the first User found.
type Backends []Backend

var _ Backend = Backends(nil)

// Authenticate runs the backends in order until one returns a User or an
// unexpected error.
//
//nolint:ireturn // Implementations vary per backend.
func (bs Backends) Authenticate(c *view.Context, creds Credentials) (User, error) {
	for _, b := range bs {
		user, err := b.Authenticate(c, creds)
		if err != nil && !errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	return nil, nil //nolint:nilnil // No backend authenticated the request.
}
