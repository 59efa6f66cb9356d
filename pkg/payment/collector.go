// Package payment collects a payment method interactively, validates the
// method-specific fields, and yields an opaque masked descriptor. Raw card
// data never leaves this package.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gamershub/pkg/notify"
)

// Method identifies a supported payment method.
type Method string

const (
	MethodCard   Method = "card"
	MethodPaypal Method = "paypal"
	MethodCash   Method = "cash"
)

// Form carries the fields the shopper filled in for the chosen method.
type Form struct {
	Method     Method
	CardNumber string
	Expiry     string
	CVV        string
	Cardholder string
	Email      string
}

// Descriptor is the minimal, masked representation of a confirmed payment
// method. MaskedInfo never contains full card numbers or raw secrets.
type Descriptor struct {
	Method     Method
	MaskedInfo string
}

// State names a collector phase.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateValidating
	StateConfirmed
	StateCancelled
)

var (
	// ErrCancelled reports that the shopper abandoned the payment step.
	ErrCancelled = errors.New("payment cancelled")
	// ErrInFlight reports a second Collect while one is still pending.
	ErrInFlight = errors.New("payment collection already in flight")
	// ErrNotCollecting reports a Submit or Cancel with no Collect pending.
	ErrNotCollecting = errors.New("no payment collection in flight")
)

// Collector is the single interactive suspension point of the checkout flow.
// Collect blocks until the driving surface calls Submit with a valid form or
// Cancel. At most one collection runs at a time.
type Collector struct {
	sink notify.Sink

	mu     sync.Mutex
	state  State
	submit chan Form
	cancel chan struct{}
	done   chan struct{}
}

// NewCollector creates a collector. A nil sink discards validation messages.
func NewCollector(sink notify.Sink) *Collector {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Collector{sink: sink, state: StateIdle}
}

// State returns the current collector phase.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Collect waits for a confirmed payment form or a cancellation. Invalid
// submissions surface a validation error through the sink and keep the
// collector waiting; they never confirm. Context cancellation counts as a
// shopper cancellation.
func (c *Collector) Collect(ctx context.Context) (Descriptor, error) {
	c.mu.Lock()
	if c.state == StateCollecting || c.state == StateValidating {
		c.mu.Unlock()
		return Descriptor{}, ErrInFlight
	}
	c.state = StateCollecting
	c.submit = make(chan Form)
	c.cancel = make(chan struct{})
	c.done = make(chan struct{})
	submit, cancel, done := c.submit, c.cancel, c.done
	c.mu.Unlock()
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			c.setState(StateCancelled)
			return Descriptor{}, ErrCancelled
		case <-cancel:
			c.setState(StateCancelled)
			return Descriptor{}, ErrCancelled
		case f := <-submit:
			c.setState(StateValidating)
			if err := Validate(f); err != nil {
				c.sink.Notify(notify.Error, err.Error())
				c.setState(StateCollecting)
				continue
			}
			c.setState(StateConfirmed)
			return describe(f), nil
		}
	}
}

// Submit offers a filled form to the pending Collect. It returns
// ErrNotCollecting when no collection is in flight; validation outcomes are
// reported through the sink, not here.
func (c *Collector) Submit(f Form) error {
	c.mu.Lock()
	if c.state != StateCollecting {
		c.mu.Unlock()
		return ErrNotCollecting
	}
	submit, done := c.submit, c.done
	c.mu.Unlock()

	select {
	case submit <- f:
		return nil
	case <-done:
		return ErrNotCollecting
	}
}

// Cancel aborts the pending Collect. Only the first cancellation of a
// collection has any effect.
func (c *Collector) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCollecting || c.cancel == nil {
		return ErrNotCollecting
	}
	close(c.cancel)
	c.cancel = nil
	return nil
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Validate runs the method-specific required-field checks.
func Validate(f Form) error {
	switch f.Method {
	case MethodCard:
		if f.CardNumber == "" || f.Expiry == "" || f.CVV == "" || f.Cardholder == "" {
			return errors.New("complete all card fields")
		}
	case MethodPaypal:
		if f.Email == "" {
			return errors.New("enter your PayPal email")
		}
	case MethodCash:
		// Nothing to validate.
	default:
		return fmt.Errorf("unknown payment method %q", f.Method)
	}
	return nil
}

// describe masks the sensitive fields of a validated form.
func describe(f Form) Descriptor {
	d := Descriptor{Method: f.Method}
	switch f.Method {
	case MethodCard:
		num := strings.Join(strings.Fields(f.CardNumber), "")
		if len(num) > 4 {
			num = num[len(num)-4:]
		}
		d.MaskedInfo = "card_last4:" + num
	case MethodPaypal:
		d.MaskedInfo = "paypal:" + f.Email
	}
	return d
}
