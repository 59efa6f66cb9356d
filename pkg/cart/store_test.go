package cart

import (
	"context"
	"math"
	"strings"
	"testing"

	"gamershub/pkg/kv/memory"
	"gamershub/pkg/notify"
)

func TestAddMergesById(t *testing.T) {
	ctx := context.Background()
	rec := &notify.Recorder{}
	s := NewStore(memory.New(), rec)

	if err := s.Add(ctx, Line{ID: "p1", Title: "Elden Ring", Price: 59.99}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(ctx, Line{ID: "p1", Title: "Elden Ring", Price: 59.99}); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if err := s.Add(ctx, Line{ID: "p2", Title: "Starfield", Price: 69.99, Quantity: 3}); err != nil {
		t.Fatalf("add p2: %v", err)
	}

	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ID != "p1" || lines[0].Quantity != 2 {
		t.Fatalf("p1: %+v", lines[0])
	}
	if lines[1].ID != "p2" || lines[1].Quantity != 3 {
		t.Fatalf("p2: %+v", lines[1])
	}
	if s.Count() != 5 {
		t.Fatalf("count: got %d", s.Count())
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(events))
	}
	if events[0].Level != notify.Success || !strings.Contains(events[0].Msg, "added") {
		t.Fatalf("first add notification: %+v", events[0])
	}
	if events[1].Level != notify.Info || !strings.Contains(events[1].Msg, "updated") {
		t.Fatalf("merge notification: %+v", events[1])
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	rec := &notify.Recorder{}
	s := NewStore(memory.New(), rec)
	s.Add(ctx, Line{ID: "p1", Title: "Cyberpunk 2077", Price: 39.99})
	s.Add(ctx, Line{ID: "p2", Title: "Hogwarts Legacy", Price: 49.99})

	if err := s.Remove(ctx, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	lines := s.Lines()
	if len(lines) != 1 || lines[0].ID != "p2" {
		t.Fatalf("after remove: %+v", lines)
	}
	last, _ := rec.Last()
	if last.Level != notify.Warning || !strings.Contains(last.Msg, "Cyberpunk 2077") {
		t.Fatalf("remove notification should name the deleted title: %+v", last)
	}

	// Out of range is a silent no-op.
	if err := s.Remove(ctx, 5); err != nil {
		t.Fatalf("remove out of range: %v", err)
	}
	if err := s.Remove(ctx, -1); err != nil {
		t.Fatalf("remove negative: %v", err)
	}
	if len(s.Lines()) != 1 {
		t.Fatalf("out-of-range remove mutated the cart")
	}
}

func TestUpdateQuantityClampsAtOne(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), nil)
	s.Add(ctx, Line{ID: "p1", Title: "Baldur's Gate 3", Price: 59.99})

	s.UpdateQuantity(ctx, 0, Increase)
	s.UpdateQuantity(ctx, 0, Increase)
	if got := s.Lines()[0].Quantity; got != 3 {
		t.Fatalf("after increases: %d", got)
	}
	for i := 0; i < 10; i++ {
		s.UpdateQuantity(ctx, 0, Decrease)
	}
	if got := s.Lines()[0].Quantity; got != 1 {
		t.Fatalf("decrease must clamp at 1, got %d", got)
	}
	if len(s.Lines()) != 1 {
		t.Fatal("decrease must never remove the line")
	}
	// Out of range is a no-op.
	if err := s.UpdateQuantity(ctx, 9, Increase); err != nil {
		t.Fatalf("update out of range: %v", err)
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	s := NewStore(store, nil)
	s.Add(ctx, Line{ID: "p1", Title: "Elden Ring", Price: 59.99, Image: "images/elden-ring.jpg"})
	s.Add(ctx, Line{ID: "p2", Title: "Starfield", Price: 69.99})
	s.UpdateQuantity(ctx, 0, Increase)

	reloaded := NewStore(store, nil)
	reloaded.Load(ctx)

	want := s.Lines()
	got := reloaded.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadCorruptDataYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Set(ctx, StorageKey, []byte("{not json"))

	s := NewStore(store, nil)
	s.Load(ctx)
	if !s.Empty() {
		t.Fatalf("corrupt data must degrade to empty, got %+v", s.Lines())
	}
}

func TestLoadSanitizesInvariants(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Set(ctx, StorageKey, []byte(`[{"id":"p1","qty":0},{"id":"","qty":2},{"id":"p1","qty":3}]`))

	s := NewStore(store, nil)
	s.Load(ctx)
	lines := s.Lines()
	if len(lines) != 1 || lines[0].ID != "p1" || lines[0].Quantity != 4 {
		t.Fatalf("sanitized lines: %+v", lines)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewStore(store, nil)
	s.Add(ctx, Line{ID: "p1", Title: "Elden Ring", Price: 59.99})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !s.Empty() {
		t.Fatal("cart not empty after clear")
	}
	reloaded := NewStore(store, nil)
	reloaded.Load(ctx)
	if !reloaded.Empty() {
		t.Fatal("clear must persist the empty cart")
	}
}

func TestObserversSeeEveryMutation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), nil)

	var calls int
	var lastTotal float64
	s.Subscribe(func(lines []Line, totals Totals) {
		calls++
		lastTotal = totals.Total
	})

	s.Add(ctx, Line{ID: "p1", Price: 10.00})
	s.UpdateQuantity(ctx, 0, Increase)
	s.Clear(ctx)

	if calls != 3 {
		t.Fatalf("expected 3 observer calls, got %d", calls)
	}
	if math.Abs(lastTotal) > 1e-9 {
		t.Fatalf("final total after clear: %v", lastTotal)
	}
}

func TestObserverMayReadStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New(), nil)

	// An observer that reads back through the store must not deadlock.
	var count, lineCount int
	s.Subscribe(func([]Line, Totals) {
		count = s.Count()
		lineCount = len(s.Lines())
	})

	s.Add(ctx, Line{ID: "p1", Price: 10.00, Quantity: 2})
	if count != 2 || lineCount != 1 {
		t.Fatalf("observer read count=%d lines=%d", count, lineCount)
	}
}
