// Package checkout coordinates the purchase: precondition checks, payment
// collection, the remote commit, the degraded local fallback, and the
// cart-clearing rules.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gamershub/pkg/cart"
	"gamershub/pkg/notify"
	"gamershub/pkg/payment"
	"gamershub/pkg/session"
)

// Failure reasons reported in Result.
const (
	ReasonSignInRequired   = "requires sign-in"
	ReasonEmptyCart        = "empty cart"
	ReasonPaymentCancelled = "payment cancelled"
)

// ErrInFlight reports a Checkout call while another one is still pending.
// Checkouts are rejected, never interleaved.
var ErrInFlight = errors.New("checkout already in flight")

// Result is the outcome of one checkout attempt.
type Result struct {
	OK     bool
	Total  float64
	Reason string
}

// Collector yields a confirmed payment descriptor or payment.ErrCancelled.
// *payment.Collector satisfies it.
type Collector interface {
	Collect(ctx context.Context) (payment.Descriptor, error)
}

// Remote commits a confirmed order against the order service and returns the
// service-reported total. *orderapi.Client satisfies it.
type Remote interface {
	CommitOrder(ctx context.Context, userID string, d payment.Descriptor) (float64, error)
}

// Orchestrator drives a checkout end to end. A nil Remote means degraded mode:
// the purchase completes locally with the cart's own total.
type Orchestrator struct {
	cart     *cart.Store
	sessions *session.Manager
	payments Collector
	remote   Remote
	sink     notify.Sink

	inflight sync.Mutex
}

// New creates an orchestrator. remote may be nil; a nil sink discards
// notifications.
func New(c *cart.Store, s *session.Manager, p Collector, remote Remote, sink notify.Sink) *Orchestrator {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Orchestrator{cart: c, sessions: s, payments: p, remote: remote, sink: sink}
}

// Checkout converts the current cart into a confirmed order. The cart is
// cleared only on confirmed success; every failure path leaves cart and
// session untouched so the shopper can retry. A second call while one is
// pending returns ErrInFlight. Remote failures are never retried here.
func (o *Orchestrator) Checkout(ctx context.Context) (Result, error) {
	if !o.inflight.TryLock() {
		return Result{}, ErrInFlight
	}
	defer o.inflight.Unlock()

	sess, ok := o.sessions.Current()
	if !ok {
		o.sink.Notify(notify.Error, "sign in to complete your purchase")
		return Result{Reason: ReasonSignInRequired}, nil
	}
	if o.cart.Empty() {
		o.sink.Notify(notify.Error, "cart is empty")
		return Result{Reason: ReasonEmptyCart}, nil
	}

	desc, err := o.payments.Collect(ctx)
	if err != nil {
		if errors.Is(err, payment.ErrCancelled) {
			o.sink.Notify(notify.Info, "payment cancelled")
			return Result{Reason: ReasonPaymentCancelled}, nil
		}
		return Result{}, err
	}

	if o.remote != nil {
		// Remote path: the service owns the reported total. Once the commit
		// is sent there is no cancellation; a failure means the purchase did
		// not happen and the cart stays as it was.
		total, err := o.remote.CommitOrder(ctx, sess.UserID, desc)
		if err != nil {
			o.sink.Notify(notify.Error, err.Error())
			return Result{Reason: err.Error()}, nil
		}
		return o.complete(ctx, total)
	}

	// Degraded mode: no remote configured at all. Never used as a fallback
	// for a remote call that was attempted and failed.
	return o.complete(ctx, o.cart.Totals().Total)
}

func (o *Orchestrator) complete(ctx context.Context, total float64) (Result, error) {
	if err := o.cart.Clear(ctx); err != nil {
		return Result{}, fmt.Errorf("clear cart after order: %w", err)
	}
	o.sink.Notify(notify.Success, fmt.Sprintf("order completed, total $%.2f", total))
	return Result{OK: true, Total: total}, nil
}
