package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Event names used on every channel.
const (
	EventConnected      = "connected"
	EventServiceChanged = "serviceChanged"
)

var (
	// ErrAlreadySubscribed is returned when Subscribe is called twice.
	ErrAlreadySubscribed = errors.New("notify: already subscribed")
	// ErrClosed is returned when subscribing after Close.
	ErrClosed = errors.New("notify: subscriber closed")
)

// Event is a serviceChanged notification.
type Event struct {
	ServiceName string `json:"serviceName"`
}

// DecodeEvent parses a serviceChanged payload.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("notify: decode event: %w", err)
	}
	return ev, nil
}

// Handlers receives subscription signals. Either callback may be nil.
// Callbacks run on the subscriber's goroutine and must not block for long.
type Handlers struct {
	OnConnect func()
	OnChange  func(Event)
}

// Connected invokes OnConnect if set.
func (h Handlers) Connected() {
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

// Changed invokes OnChange if set.
func (h Handlers) Changed(ev Event) {
	if h.OnChange != nil {
		h.OnChange(ev)
	}
}

// Subscriber is a push channel from the registry.
type Subscriber interface {
	// Subscribe starts delivering signals to h. It returns once the
	// subscription is set up; delivery continues in the background until
	// ctx is done or Close is called.
	Subscribe(ctx context.Context, h Handlers) error
	// Close stops delivery and releases resources.
	Close() error
}

// Func adapts a function to a Subscriber. Close is a no-op.
type Func func(ctx context.Context, h Handlers) error

// Subscribe calls f.
func (f Func) Subscribe(ctx context.Context, h Handlers) error { return f(ctx, h) }

// Close does nothing.
func (f Func) Close() error { return nil }
