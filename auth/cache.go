package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedUserStore wraps user lookups with an in-process cache, so that the
// stores aren't hit on every request. Only successful lookups are cached.
type CachedUserStore struct {
	users  UserStore
	tokens TokenStore
	ttl    time.Duration
	rc     *ristretto.Cache[string, User]
}

var (
	_ UserStore  = (*CachedUserStore)(nil)
	_ TokenStore = (*CachedUserStore)(nil)
)

// NewCachedUserStore returns a CachedUserStore holding up to maxEntries users
// for ttl. Either store may be nil if the corresponding lookup isn't used.
func NewCachedUserStore(
	users UserStore, tokens TokenStore, maxEntries int64, ttl time.Duration,
) (*CachedUserStore, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, User]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Each entry costs 1, so MaxCost is the number of entries.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating user cache: %w", err)
	}

	return &CachedUserStore{users: users, tokens: tokens, ttl: ttl, rc: rc}, nil
}

// UserByName returns the cached user with name, or loads it from the user
// store.
//
//nolint:ireturn // Implementations vary per backend.
func (s *CachedUserStore) UserByName(ctx context.Context, name string) (User, error) {
	if s.users == nil {
		return nil, ErrUnknownUser
	}

	return s.load(ctx, "name:"+name, func(ctx context.Context) (User, error) {
		return s.users.UserByName(ctx, name)
	})
}

// UserByToken returns the cached user for the token digest, or loads it from
// the token store.
//
//nolint:ireturn // Implementations vary per backend.
func (s *CachedUserStore) UserByToken(ctx context.Context, digest []byte) (User, error) {
	if s.tokens == nil {
		return nil, ErrUnknownUser
	}

	return s.load(ctx, "token:"+hex.EncodeToString(digest), func(ctx context.Context) (User, error) {
		return s.tokens.UserByToken(ctx, digest)
	})
}

// Purge removes all cached users, e.g. after roles or tokens changed.
func (s *CachedUserStore) Purge() {
	s.rc.Clear()
}

// Close stops the cache's background goroutines.
func (s *CachedUserStore) Close() {
	s.rc.Close()
}

//nolint:ireturn // Implementations vary per backend.
func (s *CachedUserStore) load(
	ctx context.Context, key string, loader func(context.Context) (User, error),
) (User, error) {
	if user, ok := s.rc.Get(key); ok {
		return user, nil
	}

	user, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	s.rc.SetWithTTL(key, user, 1, s.ttl)
	s.rc.Wait()

	return user, nil
}
