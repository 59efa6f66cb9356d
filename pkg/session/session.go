// Package session owns the signed-in identity and its persistence. The cart is
// tied to the session lifetime: logging out wipes both.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gamershub/pkg/cart"
	"gamershub/pkg/kv"
)

// StorageKey is the fixed key the serialized session lives under.
const StorageKey = "user"

// Session is the signed-in identity context.
type Session struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// Manager owns the current session, or its absence (guest).
type Manager struct {
	kv kv.Store

	mu  sync.Mutex
	cur *Session
}

// NewManager creates a session manager over the given persistence.
func NewManager(store kv.Store) *Manager {
	return &Manager{kv: store}
}

// Load restores the session from storage. Missing or malformed data leaves the
// manager signed out; loading never fails.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cur = nil
	raw, err := m.kv.Get(ctx, StorageKey)
	if err != nil {
		return
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.UserID == "" {
		return
	}
	m.cur = &s
}

// Current returns the active session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return Session{}, false
	}
	return *m.cur, true
}

// Save replaces the current session and persists it.
func (m *Manager) Save(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.cur = &s
	return nil
}

// Logout clears the session and the persisted cart. The cart lives and dies
// with the session; callers handle any navigation afterwards.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cur = nil
	if err := m.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := m.kv.Delete(ctx, cart.StorageKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
