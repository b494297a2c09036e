package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Backend when the key holds no value.
var ErrNotFound = errors.New("token store: key not found")

// TokenKey is the fixed key the bearer credential is stored under.
const TokenKey = "jwt"

// Backend is a string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store persists a single bearer token in a Backend.
type Store struct {
	backend Backend
	key     string
}

// New binds backend to the token key. A non-empty namespace scopes the key so
// several clients can share one backend.
func New(backend Backend, namespace string) *Store {
	key := TokenKey
	if ns := strings.TrimSpace(namespace); ns != "" {
		key = ns + ":" + TokenKey
	}
	return &Store{backend: backend, key: key}
}

// Key returns the backend key the token lives under.
func (s *Store) Key() string {
	return s.key
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	value, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return value, nil
}

// SetToken persists token, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.backend.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
