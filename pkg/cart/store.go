package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gamershub/pkg/kv"
	"gamershub/pkg/notify"
)

// StorageKey is the fixed key the serialized cart lives under.
const StorageKey = "gh_cart"

// Direction selects how UpdateQuantity changes a line.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

// Observer is called after every cart mutation with the current lines and
// totals. It replaces direct view rendering: the store does not know what a
// view is.
type Observer func(lines []Line, totals Totals)

// Store owns the cart state. All mutation goes through its methods; each
// mutating method persists the full cart and then notifies observers.
type Store struct {
	kv   kv.Store
	sink notify.Sink

	mu        sync.Mutex
	lines     []Line
	observers []Observer
}

// NewStore creates a cart store over the given persistence. A nil sink
// discards notifications.
func NewStore(store kv.Store, sink notify.Sink) *Store {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Store{kv: store, sink: sink}
}

// Subscribe registers an observer for cart changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Load restores the cart from storage. Missing or malformed data yields an
// empty cart; loading never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return
	}
	var loaded []Line
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return
	}
	s.lines = sanitize(loaded)
}

// sanitize restores the cart invariants on loaded data: no empty ids, at most
// one line per id (duplicates merge), quantity at least 1.
func sanitize(in []Line) []Line {
	var out []Line
	for _, l := range in {
		if l.ID == "" {
			continue
		}
		if l.Quantity < 1 {
			l.Quantity = 1
		}
		if i := indexOf(out, l.ID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

func indexOf(lines []Line, id string) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Add merges item into the cart: an existing line with the same id has its
// quantity incremented, otherwise the item is appended as a new line. A
// non-positive incoming quantity counts as 1.
func (s *Store) Add(ctx context.Context, item Line) error {
	s.mu.Lock()
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	if i := indexOf(s.lines, item.ID); i >= 0 {
		s.lines[i].Quantity += qty
		s.sink.Notify(notify.Info, "cart quantity updated")
	} else {
		item.Quantity = qty
		s.lines = append(s.lines, item)
		s.sink.Notify(notify.Success, fmt.Sprintf("%s added to cart", item.Title))
	}
	return s.persist(ctx)
}

// Remove deletes the line at index. An out-of-range index is a no-op.
func (s *Store) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return nil
	}
	title := s.lines[index].Title
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	s.sink.Notify(notify.Warning, fmt.Sprintf("%s removed from cart", title))
	return s.persist(ctx)
}

// UpdateQuantity adjusts the quantity of the line at index by one step.
// Decrease clamps at 1; removal never happens through this path. An
// out-of-range index is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, index int, dir Direction) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return nil
	}
	switch dir {
	case Increase:
		s.lines[index].Quantity++
	case Decrease:
		if s.lines[index].Quantity > 1 {
			s.lines[index].Quantity--
		}
	}
	return s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = nil
	s.sink.Notify(notify.Info, "cart cleared")
	return s.persist(ctx)
}

// Lines returns a copy of the current cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Totals computes the current cart totals. Always recomputed, never cached.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sum(s.lines)
}

// persist writes the full cart under StorageKey, releases s.mu, and then
// notifies observers. Callers must hold s.mu and must not unlock it
// themselves; observers run outside the lock and may read the store freely.
func (s *Store) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, raw); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist cart: %w", err)
	}
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	totals := Sum(s.lines)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(lines, totals)
	}
	return nil
}
