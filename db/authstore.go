package db

import (
	"context"
	"errors"
	"fmt"

	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/db/models"
	"go.hackfix.me/strata/db/types"
)

// AuthStore loads the users of the auth backends from the database.
type AuthStore struct {
	d types.Querier
}

var (
	_ auth.UserStore     = (*AuthStore)(nil)
	_ auth.PasswordStore = (*AuthStore)(nil)
	_ auth.TokenStore    = (*AuthStore)(nil)
)

// NewAuthStore returns a new AuthStore.
func NewAuthStore(d types.Querier) *AuthStore {
	return &AuthStore{d: d}
}

// UserByName returns the user with name.
//
//nolint:ireturn // Implementations vary per backend.
func (s *AuthStore) UserByName(ctx context.Context, name string) (auth.User, error) {
	user, err := s.load(ctx, &models.User{Name: name})
	if err != nil {
		return nil, err
	}
	return user.AuthUser()
}

// PasswordHash returns the user with name and its password hash. Users without
// a password can't authenticate with one.
//
//nolint:ireturn // Implementations vary per backend.
func (s *AuthStore) PasswordHash(ctx context.Context, name string) (auth.User, []byte, error) {
	user, err := s.load(ctx, &models.User{Name: name})
	if err != nil {
		return nil, nil, err
	}
	if len(user.PasswordHash) == 0 {
		return nil, nil, auth.ErrUnknownUser
	}

	authUser, err := user.AuthUser()
	if err != nil {
		return nil, nil, err
	}

	return authUser, user.PasswordHash, nil
}

// UserByToken returns the owner of the unexpired token with digest.
//
//nolint:ireturn // Implementations vary per backend.
func (s *AuthStore) UserByToken(ctx context.Context, digest []byte) (auth.User, error) {
	token, err := models.TokenByDigest(ctx, s.d, digest)
	if err != nil {
		return nil, unknownUser(err)
	}

	user, err := s.load(ctx, &models.User{ID: token.UserID})
	if err != nil {
		return nil, err
	}
	return user.AuthUser()
}

func (s *AuthStore) load(ctx context.Context, user *models.User) (*models.User, error) {
	if err := user.Load(ctx, s.d); err != nil {
		return nil, unknownUser(err)
	}
	return user, nil
}

func unknownUser(err error) error {
	var nrErr types.NoResultError
	if errors.As(err, &nrErr) {
		return fmt.Errorf("%w: %s", auth.ErrUnknownUser, nrErr.Error())
	}
	return err
}
