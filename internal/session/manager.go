// Package session owns the authentication state of one browser session: the
// bearer token, the claims decoded from it and the profile fetched for it.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"bookstore/internal/api"
	"bookstore/internal/claims"
)

// ErrAuthentication is returned when a login attempt does not yield a token.
var ErrAuthentication = errors.New("authentication failed")

const defaultProfileTimeout = 10 * time.Second

// TokenStore persists the bearer token.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// AuthClient is the subset of the API used by the manager.
type AuthClient interface {
	Login(ctx context.Context, username, password string) (api.LoginResponse, error)
	Profile(ctx context.Context) (api.Profile, error)
}

// State is a consistent snapshot of the session.
type State struct {
	Token         string
	Claims        claims.Claims
	Roles         []string
	Profile       api.Profile
	Authenticated bool
	ExpiresAt     time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithProfileTimeout bounds each background profile fetch.
func WithProfileTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.profileTimeout = timeout
		}
	}
}

// Manager is the single source of truth for who is signed in.
type Manager struct {
	store          TokenStore
	client         AuthClient
	logger         *slog.Logger
	now            func() time.Time
	profileTimeout time.Duration

	// writeMu serialises token transitions so the store and the in-memory
	// token never disagree once a call returns.
	writeMu sync.Mutex

	mu          sync.RWMutex
	token       string
	claims      claims.Claims
	profile     api.Profile
	generation  uint64
	cancelSync  context.CancelFunc
	syncDone    chan struct{}
	subscribers map[int]func(State)
	nextSub     int
	closed      bool
	seq         uint64

	// notifyMu orders deliveries; delivered is the newest seq handed out.
	notifyMu  sync.Mutex
	delivered uint64

	baseCtx    context.Context
	baseCancel context.CancelFunc
	syncs      sync.WaitGroup
}

// NewManager builds a manager and loads any persisted token.
func NewManager(ctx context.Context, store TokenStore, client AuthClient, opts ...Option) (*Manager, error) {
	baseCtx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:          store,
		client:         client,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
		profileTimeout: defaultProfileTimeout,
		subscribers:    make(map[int]func(State)),
		baseCtx:        baseCtx,
		baseCancel:     cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.Reload(ctx); err != nil {
		cancel()
		return nil, err
	}
	return m, nil
}

// Login exchanges credentials for a token and makes it the active session.
// On failure the stored token is left untouched.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	token, err := tokenFromResponse(resp)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	m.transition(token)
	m.logger.Info("session signed in", "subject", m.Claims().Name())
	return nil
}

// Logout forgets the token, the claims and the profile. It never fails; a
// store error is logged.
func (m *Manager) Logout(ctx context.Context) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clear stored token", "error", err)
	}
	m.transition("")
}

// Reload re-reads the persisted token. It picks up tokens written directly
// to the store, such as the one handed back by Google sign-in.
func (m *Manager) Reload(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	token, err := m.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	m.transition(token)
	return nil
}

func (m *Manager) transition(token string) {
	m.mu.Lock()
	m.token = token
	m.claims = nil
	m.profile = nil
	if token != "" {
		if decoded, err := claims.Parse(token); err == nil {
			m.claims = decoded
		} else {
			m.logger.Debug("token has no readable claims", "error", err)
		}
	}
	m.scheduleProfileLocked()
	m.seq++
	state, seq := m.stateLocked(), m.seq
	m.mu.Unlock()

	m.notify(state, seq)
}

// scheduleProfileLocked supersedes any in-flight fetch and starts one for the
// current token when it is still valid.
func (m *Manager) scheduleProfileLocked() {
	if m.cancelSync != nil {
		m.cancelSync()
		m.cancelSync = nil
	}
	m.syncDone = nil
	m.generation++

	if m.closed || !m.authenticatedLocked() {
		return
	}

	ctx, cancel := context.WithTimeout(m.baseCtx, m.profileTimeout)
	done := make(chan struct{})
	m.cancelSync = cancel
	m.syncDone = done

	m.syncs.Add(1)
	go m.syncProfile(ctx, cancel, m.generation, done)
}

func (m *Manager) syncProfile(ctx context.Context, cancel context.CancelFunc, generation uint64, done chan struct{}) {
	defer m.syncs.Done()
	defer close(done)
	defer cancel()

	profile, err := m.client.Profile(ctx)

	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		return
	}
	m.cancelSync = nil
	m.syncDone = nil
	if err != nil {
		m.profile = nil
		m.logger.Debug("profile sync failed", "error", err)
	} else {
		m.profile = profile
	}
	m.seq++
	state, seq := m.stateLocked(), m.seq
	m.mu.Unlock()

	m.notify(state, seq)
}

// WaitProfile blocks until no profile fetch is in flight.
func (m *Manager) WaitProfile(ctx context.Context) error {
	for {
		m.mu.RLock()
		done := m.syncDone
		m.mu.RUnlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops background work. The session state stays readable.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.cancelSync != nil {
		m.cancelSync()
		m.cancelSync = nil
	}
	m.syncDone = nil
	m.generation++
	m.mu.Unlock()

	m.baseCancel()
	m.syncs.Wait()
}

// IsAuthenticated reports whether a token is present and not expired.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked()
}

func (m *Manager) authenticatedLocked() bool {
	return m.token != "" && !m.claims.Expired(m.now())
}

// HasRole reports whether role is carried by the current claims.
func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claims.HasRole(role)
}

// Roles returns the roles carried by the current claims.
func (m *Manager) Roles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claims.Roles()
}

// Claims returns the decoded claims, or nil.
func (m *Manager) Claims() claims.Claims {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claims
}

// Profile returns the last fetched profile.
func (m *Manager) Profile() (api.Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile, m.profile != nil
}

// Store returns the token store backing the session.
func (m *Manager) Store() TokenStore {
	return m.store
}

// Token returns the in-memory token.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	return State{
		Token:         m.token,
		Claims:        m.claims,
		Roles:         m.claims.Roles(),
		Profile:       m.profile,
		Authenticated: m.authenticatedLocked(),
		ExpiresAt:     m.claims.ExpiresAt(),
	}
}

// Subscribe registers fn for token and profile transitions. Snapshots arrive
// in order and one older than a snapshot already delivered is dropped, so the
// last call always carries the current state. fn must not log in or out.
// The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(state State, seq uint64) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.delivered {
		return
	}
	m.delivered = seq

	m.mu.RLock()
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}

// tokenFromResponse prefers "Token" and falls back to "token" when the
// former is absent or null.
func tokenFromResponse(resp api.LoginResponse) (string, error) {
	raw := resp["Token"]
	if isNull(raw) {
		raw = resp["token"]
	}
	if isNull(raw) {
		return "", fmt.Errorf("%w: no token in response", ErrAuthentication)
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil || token == "" {
		return "", fmt.Errorf("%w: no usable token in response", ErrAuthentication)
	}
	return token, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
