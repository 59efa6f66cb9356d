// Package notify carries short-lived status messages from the core to whatever
// surface displays them. Nothing flows back: a sink is fire-and-forget.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Level classifies a notification for display purposes.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Sink accepts user-facing status messages.
type Sink interface {
	Notify(level Level, msg string)
}

// Nop discards all notifications.
type Nop struct{}

// Notify implements Sink.
func (Nop) Notify(Level, string) {}

// ZapSink writes notifications to a zap logger.
type ZapSink struct {
	Log *zap.Logger
}

// Notify implements Sink.
func (s ZapSink) Notify(level Level, msg string) {
	switch level {
	case Warning:
		s.Log.Warn(msg, zap.String("notify", level.String()))
	case Error:
		s.Log.Error(msg, zap.String("notify", level.String()))
	default:
		s.Log.Info(msg, zap.String("notify", level.String()))
	}
}

// Event is one recorded notification.
type Event struct {
	Level Level
	Msg   string
}

// Recorder captures notifications for inspection in tests and the TUI footer.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Sink.
func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Msg: msg})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
