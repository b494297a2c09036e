package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRegistryClosed is returned by Get after Close.
var ErrRegistryClosed = errors.New("session registry closed")

const (
	// DefaultIdleTimeout is how long an unused manager is kept in memory.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxSessions bounds the number of live managers.
	DefaultMaxSessions = 10000
)

// Factory builds the manager for a browser session id.
type Factory func(ctx context.Context, id string) (*Manager, error)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTimeout sets how long a manager may go unused before Sweep drops it.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

// WithMaxSessions caps the number of live managers. When the cap is reached
// the least recently used manager is dropped.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// WithRegistryClock overrides the time source used for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

type registryEntry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry keeps one Manager per browser session. Dropping a manager loses
// nothing: the token lives in the store under the session id, and the next
// Get rebuilds the manager from it.
type Registry struct {
	factory     Factory
	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

// NewRegistry constructs a Registry.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:     factory,
		idleTimeout: DefaultIdleTimeout,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		entries:     make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the manager for id, creating it on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Manager, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.manager, nil
	}
	r.mu.Unlock()

	created, err := r.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		created.Close()
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		created.Close()
		return e.manager, nil
	}

	var evicted []*Manager
	for len(r.entries) >= r.maxSessions {
		evicted = append(evicted, r.removeOldestLocked())
	}
	r.entries[id] = &registryEntry{manager: created, lastSeen: r.now()}
	r.mu.Unlock()

	for _, m := range evicted {
		m.Close()
	}
	return created, nil
}

func (r *Registry) removeOldestLocked() *Manager {
	var oldestID string
	var oldest *registryEntry
	for id, e := range r.entries {
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	delete(r.entries, oldestID)
	return oldest.manager
}

// Forget drops the manager for id and stops its background work.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.manager.Close()
	}
}

// Sweep drops every manager unused for at least the idle timeout and returns
// how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*Manager
	for id, e := range r.entries {
		if !e.lastSeen.After(cutoff) {
			idle = append(idle, e.manager)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, m := range idle {
		m.Close()
	}
	return len(idle)
}

// Run sweeps idle managers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops every manager. Subsequent Get calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.manager.Close()
	}
}
