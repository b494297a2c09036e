// Package oauth finishes a third-party sign-in whose token comes back in a
// URL fragment.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"bookstore/internal/guard"
)

// Default navigation targets.
const (
	DefaultLandingPath = "/books"
	NoTokenPath        = "/login?err=no_token"
)

// TokenWriter persists the injected token.
type TokenWriter interface {
	SetToken(ctx context.Context, token string) error
}

// ReloadFunc re-initialises session state from the persisted token.
type ReloadFunc func(ctx context.Context) error

// Completer turns a callback fragment into an active session.
type Completer struct {
	store       TokenWriter
	reload      ReloadFunc
	landingPath string
	logger      *slog.Logger
}

// Option configures a Completer.
type Option func(*Completer)

// WithLandingPath overrides where a successful sign-in lands.
func WithLandingPath(path string) Option {
	return func(c *Completer) {
		if path != "" {
			c.landingPath = path
		}
	}
}

// WithLogger sets the completer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Completer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCompleter constructs a Completer. reload may be nil.
func NewCompleter(store TokenWriter, reload ReloadFunc, opts ...Option) *Completer {
	c := &Completer{
		store:       store,
		reload:      reload,
		landingPath: DefaultLandingPath,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete parses fragment (with or without the leading '#') and navigates
// through nav. The token is stored exactly as received; it is only decoded
// when the session reloads.
func (c *Completer) Complete(ctx context.Context, fragment string, nav guard.Navigator) error {
	token := TokenFromFragment(fragment)
	if token == "" {
		c.logger.Info("oauth callback without token")
		nav.Replace(NoTokenPath)
		return nil
	}

	if err := c.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("store oauth token: %w", err)
	}
	if c.reload != nil {
		if err := c.reload(ctx); err != nil {
			return fmt.Errorf("reload session: %w", err)
		}
	}

	nav.Replace(c.landingPath)
	return nil
}

// TokenFromFragment extracts the token parameter of a callback fragment.
func TokenFromFragment(fragment string) string {
	// ParseQuery keeps the pairs it could read even when it reports an error.
	values, _ := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	return values.Get("token")
}
