package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// TokenSize is the size of API tokens in bytes, before encoding.
const TokenSize = 32

// NewToken generates a random API token. It returns the base58-encoded token
// to hand out to the client, and its digest to store.
func NewToken() (token string, digest []byte, err error) {
	raw := make([]byte, TokenSize)
	if _, err = rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed generating token: %w", err)
	}

	return base58.Encode(raw), TokenDigest(raw), nil
}

// TokenDigest returns the SHA-256 digest of a decoded token.
func TokenDigest(raw []byte) []byte {
	sum := sha256.Sum256(raw)
	return sum[:]
}

// DecodeToken decodes a base58-encoded API token.
func DecodeToken(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	raw, err := base58.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("failed decoding token: %w", err)
	}
	if len(raw) != TokenSize {
		return nil, fmt.Errorf("invalid token size: %d", len(raw))
	}

	return raw, nil
}

// parseBearer extracts the token from a Bearer Authorization header.
func parseBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("empty Authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header scheme")
	}

	return strings.TrimSpace(token), nil
}
