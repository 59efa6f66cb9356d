package checkout

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"gamershub/pkg/cart"
	"gamershub/pkg/kv/memory"
	"gamershub/pkg/payment"
	"gamershub/pkg/session"
)

type stubCollector struct {
	desc   payment.Descriptor
	err    error
	calls  int
	gate   chan struct{} // when set, Collect blocks until closed
	gateMu sync.Mutex
}

func (s *stubCollector) Collect(ctx context.Context) (payment.Descriptor, error) {
	s.gateMu.Lock()
	s.calls++
	gate := s.gate
	s.gateMu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.desc, s.err
}

type stubRemote struct {
	total  float64
	err    error
	calls  int
	userID string
	desc   payment.Descriptor
}

func (s *stubRemote) CommitOrder(ctx context.Context, userID string, d payment.Descriptor) (float64, error) {
	s.calls++
	s.userID = userID
	s.desc = d
	return s.total, s.err
}

func signedInCart(t *testing.T) (*cart.Store, *session.Manager) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	c := cart.NewStore(store, nil)
	s := session.NewManager(store)
	if err := s.Save(ctx, session.Session{UserID: "u1", Username: "alice"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := c.Add(ctx, cart.Line{ID: "p1", Title: "Widget", Price: 10.00, Quantity: 2}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return c, s
}

func TestRequiresSignIn(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := cart.NewStore(store, nil)
	s := session.NewManager(store)
	col := &stubCollector{}

	o := New(c, s, col, nil, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.OK || res.Reason != ReasonSignInRequired {
		t.Fatalf("result: %+v", res)
	}
	if col.calls != 0 {
		t.Fatal("collector must not run without a session")
	}
}

func TestEmptyCartNeverCollectsPayment(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c := cart.NewStore(store, nil)
	s := session.NewManager(store)
	s.Save(ctx, session.Session{UserID: "u1", Username: "alice"})
	col := &stubCollector{}

	o := New(c, s, col, nil, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.OK || res.Reason != ReasonEmptyCart {
		t.Fatalf("result: %+v", res)
	}
	if col.calls != 0 {
		t.Fatal("collector must not run with an empty cart")
	}
}

func TestCancelledPaymentLeavesCartIntact(t *testing.T) {
	ctx := context.Background()
	c, s := signedInCart(t)
	col := &stubCollector{err: payment.ErrCancelled}
	remote := &stubRemote{}

	o := New(c, s, col, remote, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.OK || res.Reason != ReasonPaymentCancelled {
		t.Fatalf("result: %+v", res)
	}
	if remote.calls != 0 {
		t.Fatal("remote must not be invoked after cancellation")
	}
	lines := c.Lines()
	if len(lines) != 1 || lines[0].ID != "p1" || lines[0].Quantity != 2 {
		t.Fatalf("cart mutated: %+v", lines)
	}
}

func TestRemoteSuccessClearsCart(t *testing.T) {
	ctx := context.Background()
	c, s := signedInCart(t)
	col := &stubCollector{desc: payment.Descriptor{Method: payment.MethodCash}}
	remote := &stubRemote{total: 22.00}

	o := New(c, s, col, remote, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !res.OK || math.Abs(res.Total-22.00) > 1e-9 {
		t.Fatalf("result: %+v", res)
	}
	if !c.Empty() {
		t.Fatal("cart must be empty after a confirmed order")
	}
	if remote.userID != "u1" || remote.desc.Method != payment.MethodCash {
		t.Fatalf("remote got userID=%q desc=%+v", remote.userID, remote.desc)
	}
}

func TestRemoteFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	c, s := signedInCart(t)
	col := &stubCollector{desc: payment.Descriptor{Method: payment.MethodCash}}
	remote := &stubRemote{err: errors.New("order service: cart is empty")}

	o := New(c, s, col, remote, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.OK {
		t.Fatalf("result: %+v", res)
	}
	if c.Empty() {
		t.Fatal("cart must survive a failed remote commit")
	}
	if remote.calls != 1 {
		t.Fatalf("remote calls: %d (no automatic retry)", remote.calls)
	}
}

func TestDegradedModeUsesLocalTotal(t *testing.T) {
	ctx := context.Background()
	c, s := signedInCart(t)
	col := &stubCollector{desc: payment.Descriptor{Method: payment.MethodCash}}

	o := New(c, s, col, nil, nil)
	res, err := o.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 10.00 x 2 plus 10% tax.
	if !res.OK || math.Abs(res.Total-22.00) > 1e-9 {
		t.Fatalf("result: %+v", res)
	}
	if !c.Empty() {
		t.Fatal("cart must be empty after local completion")
	}
}

func TestSecondCheckoutRejectedWhilePending(t *testing.T) {
	ctx := context.Background()
	c, s := signedInCart(t)
	gate := make(chan struct{})
	col := &stubCollector{desc: payment.Descriptor{Method: payment.MethodCash}, gate: gate}

	o := New(c, s, col, nil, nil)
	done := make(chan Result, 1)
	go func() {
		res, _ := o.Checkout(ctx)
		done <- res
	}()

	// Wait for the first checkout to reach the collector.
	for {
		col.gateMu.Lock()
		n := col.calls
		col.gateMu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := o.Checkout(ctx); err != ErrInFlight {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(gate)
	res := <-done
	if !res.OK {
		t.Fatalf("first checkout: %+v", res)
	}

	// Once settled, a new checkout may start (cart is empty now).
	res, err := o.Checkout(ctx)
	if err != nil || res.Reason != ReasonEmptyCart {
		t.Fatalf("follow-up checkout: %+v %v", res, err)
	}
}
