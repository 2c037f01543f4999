package models

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/types"
)

// Token is an API token of a user. Only the digest of the token is stored.
type Token struct {
	ID        uint64
	CreatedAt time.Time
	ExpiresAt sql.Null[time.Time]
	UserID    uint64
	UserName  string
	Digest    []byte
}

// ShortDigest returns a prefix of the hex-encoded digest, to identify the
// token in listings.
func (t *Token) ShortDigest() string {
	s := hex.EncodeToString(t.Digest)
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}

// Expired reports whether the token expired at now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt.Valid && !now.Before(t.ExpiresAt.V)
}

// Save stores a new token in the database.
func (t *Token) Save(ctx context.Context, d types.Querier) error {
	if t.UserID == 0 || len(t.Digest) == 0 {
		return types.InvalidInputError{Msg: "token user ID and digest must be set"}
	}

	timeNow := d.TimeNow().UTC()
	res, err := d.ExecContext(ctx, `INSERT INTO tokens
		(id, created_at, expires_at, user_id, digest)
		VALUES (NULL, ?, ?, ?, ?)`, timeNow, t.ExpiresAt, t.UserID, t.Digest)
	if err != nil {
		return types.Err("token", fmt.Sprintf("user ID %d", t.UserID), err)
	}

	if t.ID, err = lastInsertID(res); err != nil {
		return err
	}
	t.CreatedAt = timeNow

	return nil
}

// Delete removes the token from the database.
func (t *Token) Delete(ctx context.Context, d types.Querier) error {
	if t.ID == 0 {
		return types.InvalidInputError{Msg: "token ID must be set"}
	}

	filterStr := fmt.Sprintf("ID %d", t.ID)
	res, err := d.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, t.ID)
	if err != nil {
		return types.Err("token", filterStr, err)
	}

	return checkAffected(res, "token", filterStr)
}

// TokenByDigest returns the unexpired token with the digest.
func TokenByDigest(ctx context.Context, d types.Querier, digest []byte) (*Token, error) {
	tokens, err := Tokens(ctx, d, crud.NewQuery(
		"t.digest = ? AND (t.expires_at IS NULL OR t.expires_at > ?)", digest, d.TimeNow().UTC()))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, types.NoResultError{ModelName: "token", ID: "digest"}
	}

	return tokens[0], nil
}

// Tokens returns one or more tokens from the database. An optional filter can
// be passed to limit the results.
func Tokens(ctx context.Context, d types.Querier, filter *crud.Query) (tokens []*Token, rerr error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`SELECT t.id, t.created_at, t.expires_at, t.user_id, u.name, t.digest
		FROM tokens t
		INNER JOIN users u ON u.id = t.user_id
		%s
		ORDER BY t.created_at ASC, t.id ASC %s`, where, pageClause(filter))

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "tokens", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing tokens rows: %w", err)
		}
	}()

	tokens = make([]*Token, 0)
	for rows.Next() {
		var t Token
		err = rows.Scan(&t.ID, &t.CreatedAt, &t.ExpiresAt, &t.UserID, &t.UserName, &t.Digest)
		if err != nil {
			return nil, types.ScanError{ModelName: "token", Err: err}
		}
		tokens = append(tokens, &t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over tokens rows: %w", err)
	}

	return tokens, nil
}
