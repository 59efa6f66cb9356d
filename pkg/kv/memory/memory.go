// Package memory implements an in-memory key-value store.
package memory

import (
	"context"
	"sync"

	"gamershub/pkg/kv"
)

// Store provides an in-memory implementation of kv.Store.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
