package auth

import (
	"errors"

	"go.hackfix.me/strata/view"
)

// UserKey is the default Context key under which the authenticated User is
// stored.
const UserKey = "__user__"

// Option configures the authentication layers.
type Option func(*config)

type config struct {
	userKey        string
	credentialKeys []string
}

func newConfig(opts []Option) *config {
	cfg := &config{userKey: UserKey}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithUserKey sets the Context key of the User.
func WithUserKey(key string) Option {
	return func(cfg *config) {
		cfg.userKey = key
	}
}

// WithCredentialKeys sets the Context keys whose values are passed to the
// Backend as credentials, e.g. path wildcards.
func WithCredentialKeys(keys ...string) Option {
	return func(cfg *config) {
		cfg.credentialKeys = keys
	}
}

// Authentication returns a layer that authenticates the request with backend
// and stores the resulting User in the Context. Requests that no backend
// authenticates get an AnonymousUser, and are allowed to proceed; use
// IsAuthenticated to reject them.
func Authentication(backend Backend, opts ...Option) view.Layer {
	cfg := newConfig(opts)

	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			creds := make(Credentials, len(cfg.credentialKeys))
			for _, key := range cfg.credentialKeys {
				if v, ok := c.Get(key); ok {
					creds[key] = v
				}
			}

			user, err := backend.Authenticate(c, creds)
			if err != nil && !errors.Is(err, ErrInvalidCredentials) {
				return nil, err
			}
			if user == nil {
				user = AnonymousUser{}
			}
			c.Set(cfg.userKey, user)

			return next(c)
		}
	}
}

// UserFrom returns the User stored in c under key, or an AnonymousUser.
//
//nolint:ireturn // Implementations vary per backend.
func UserFrom(c *view.Context, key string) User {
	if user, ok := view.Lookup[User](c, key); ok && user != nil {
		return user
	}
	return AnonymousUser{}
}

// Rule is a permission check on the request.
type Rule func(*view.Context) bool

// Permission returns a layer that responds with 403 Forbidden, without calling
// the next service, if any of the rules is false for the request.
func Permission(rules ...Rule) view.Layer {
	return view.Case(func(c *view.Context) bool {
		for _, rule := range rules {
			if !rule(c) {
				return true
			}
		}
		return false
	}, view.View403)
}

// Authenticated returns a rule that is true for authenticated users.
func Authenticated(opts ...Option) Rule {
	cfg := newConfig(opts)
	return func(c *view.Context) bool {
		return UserFrom(c, cfg.userKey).IsAuthenticated()
	}
}

// Perms returns a rule that is true if the User stored under userKey has all
// of the permissions.
func Perms(userKey string, perms ...string) Rule {
	return func(c *view.Context) bool {
		user := UserFrom(c, userKey)
		for _, perm := range perms {
			if !user.HasPerm(perm) {
				return false
			}
		}
		return true
	}
}

// IsAuthenticated returns a layer that rejects unauthenticated requests with
// 403 Forbidden.
func IsAuthenticated(opts ...Option) view.Layer {
	return Permission(Authenticated(opts...))
}

// HasPermissions returns a layer that rejects requests with 403 Forbidden
// unless the User stored under UserKey has all of the permissions.
func HasPermissions(perms ...string) view.Layer {
	return HasPermissionsFor(UserKey, perms...)
}

// HasPermissionsFor is HasPermissions for a User stored under userKey, as set
// with WithUserKey.
func HasPermissionsFor(userKey string, perms ...string) view.Layer {
	return Permission(Perms(userKey, perms...))
}
