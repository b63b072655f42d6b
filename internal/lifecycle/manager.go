package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Manager hands out one Controller per signed-in user.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	store    GoalStore
	verifier Verifier
	policy   Policy
	opts     []Option
	now      func() time.Time
}

func NewManager(store GoalStore, verifier Verifier, policy Policy, opts ...Option) *Manager {
	m := &Manager{
		controllers: make(map[string]*Controller),
		store:       store,
		verifier:    verifier,
		policy:      policy,
		opts:        opts,
		now:         time.Now,
	}

	// Pick up an injected clock for eviction as well.
	defaults := &Controller{now: time.Now}
	for _, opt := range opts {
		opt(defaults)
	}
	m.now = defaults.now

	return m
}

// Controller returns the user's controller, signing it in on first use.
func (m *Manager) Controller(ctx context.Context, userID string) (*Controller, error) {
	m.mu.Lock()
	c, ok := m.controllers[userID]
	if !ok {
		c = NewController(m.store, m.verifier, m.policy, m.opts...)
		m.controllers[userID] = c
	}
	m.mu.Unlock()

	// A no-op once the controller is signed in as userID.
	err := c.OnAuthChanged(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SignOut drops the user's controller after moving it to Unauthenticated.
func (m *Manager) SignOut(userID string) {
	m.mu.Lock()
	c, ok := m.controllers[userID]
	delete(m.controllers, userID)
	m.mu.Unlock()

	if ok {
		_ = c.OnAuthChanged(context.Background(), "")
	}
}

// EvictIdle forgets controllers unused for longer than maxIdle. Controllers
// waiting on a verification are kept. It returns how many were dropped.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for userID, c := range m.controllers {
		lastUsed, busy := c.idleSince()
		if busy || !lastUsed.Before(cutoff) {
			continue
		}
		delete(m.controllers, userID)
		evicted++
	}
	return evicted
}

// Len reports how many controllers are held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
