package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"go.hackfix.me/strata/view"
)

// ErrUnknownUser is returned by stores when the requested user doesn't exist.
var ErrUnknownUser = errors.New("unknown user")

// UserStore loads users by name.
type UserStore interface {
	UserByName(ctx context.Context, name string) (User, error)
}

// PasswordStore loads users along with their bcrypt password hash.
type PasswordStore interface {
	PasswordHash(ctx context.Context, name string) (User, []byte, error)
}

// TokenStore loads users by the digest of an API token.
type TokenStore interface {
	UserByToken(ctx context.Context, digest []byte) (User, error)
}

// HeaderBackend authenticates requests by a username set in header by a
// trusted reverse proxy. Unknown users aren't authenticated.
func HeaderBackend(header string, store UserStore) Backend {
	return BackendFunc(func(c *view.Context, _ Credentials) (User, error) {
		name := c.Request().Header.Get(header)
		if name == "" {
			return nil, nil //nolint:nilnil // Nothing to authenticate.
		}

		user, err := store.UserByName(c.Context(), name)
		if err != nil {
			return nil, unknownAsInvalid(err)
		}

		return user, nil
	})
}

// BasicBackend authenticates requests with HTTP Basic credentials checked
// against the bcrypt password hashes in store.
func BasicBackend(store PasswordStore) Backend {
	return BackendFunc(func(c *view.Context, _ Credentials) (User, error) {
		name, password, ok := c.Request().BasicAuth()
		if !ok {
			return nil, nil //nolint:nilnil // Nothing to authenticate.
		}

		user, hash, err := store.PasswordHash(c.Context(), name)
		if err != nil {
			return nil, unknownAsInvalid(err)
		}

		if err = bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
			c.Logger().Debug("password mismatch", "user", name)
			return nil, ErrInvalidCredentials
		}

		return user, nil
	})
}

// TokenBackend authenticates requests with a base58-encoded API token in a
// Bearer Authorization header.
func TokenBackend(store TokenStore) Backend {
	return BackendFunc(func(c *view.Context, _ Credentials) (User, error) {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return nil, nil //nolint:nilnil // Nothing to authenticate.
		}

		token, err := parseBearer(header)
		if err != nil {
			return nil, nil //nolint:nilnil // Possibly a Basic header.
		}

		raw, err := DecodeToken(token)
		if err != nil {
			c.Logger().Debug("invalid token", "error", err)
			return nil, ErrInvalidCredentials
		}

		user, err := store.UserByToken(c.Context(), TokenDigest(raw))
		if err != nil {
			return nil, unknownAsInvalid(err)
		}

		return user, nil
	})
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed hashing password: %w", err)
	}

	return hash, nil
}

func unknownAsInvalid(err error) error {
	if errors.Is(err, ErrUnknownUser) {
		return ErrInvalidCredentials
	}
	return err
}
