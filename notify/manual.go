package notify

import (
	"context"
	"sync"
)

// Manual is an in-process Subscriber driven by explicit calls. It backs the
// "none" provider and is convenient in tests and static setups.
type Manual struct {
	mu       sync.Mutex
	handlers *Handlers
	closed   bool
}

// NewManual creates a Manual subscriber.
func NewManual() *Manual {
	return &Manual{}
}

// Subscribe stores h. No signal is sent until Connect or Publish is called.
func (m *Manual) Subscribe(_ context.Context, h Handlers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.handlers != nil {
		return ErrAlreadySubscribed
	}
	m.handlers = &h
	return nil
}

// Connect delivers a connect signal.
func (m *Manual) Connect() {
	if h, ok := m.current(); ok {
		h.Connected()
	}
}

// Publish delivers a serviceChanged event.
func (m *Manual) Publish(ev Event) {
	if h, ok := m.current(); ok {
		h.Changed(ev)
	}
}

// Subscribed reports whether a handler set is attached.
func (m *Manual) Subscribed() bool {
	_, ok := m.current()
	return ok
}

// Close detaches the handlers; later signals are dropped.
func (m *Manual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = nil
	return nil
}

func (m *Manual) current() (Handlers, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		return Handlers{}, false
	}
	return *m.handlers, true
}
