package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gamershub/pkg/cart"
	"gamershub/pkg/kv"
	"gamershub/pkg/kv/memory"
	"gamershub/pkg/notify"
	"gamershub/pkg/payment"
	"gamershub/pkg/session"
)

// flakyKV delegates to an inner store and starts failing writes on demand.
type flakyKV struct {
	inner kv.Store
	fail  bool
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("state db unavailable")
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCartPersistErrorsSurfaceInStatus(t *testing.T) {
	ctx := context.Background()
	store := &flakyKV{inner: memory.New()}
	carts := cart.NewStore(store, nil)
	if err := carts.Add(ctx, cart.Line{ID: "p1", Title: "Elden Ring", Price: 59.99}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	store.fail = true

	sessions := session.NewManager(memory.New())
	m := newModel(carts, sessions, payment.NewCollector(nil), nil, nil, &notify.Recorder{})
	m.screen = screenCart

	cases := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"increase", keyMsg("+")},
		{"decrease", keyMsg("-")},
		{"remove", keyMsg("x")},
		{"clear", keyMsg("C")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m.status = ""
			updated, _ := m.updateCart(tc.msg)
			got := updated.(model)
			if !strings.Contains(got.status, "state db unavailable") {
				t.Fatalf("status after %s: %q", tc.name, got.status)
			}
		})
	}
}
