package notify

import (
	"context"
	"sync"
	"time"
)

// Loop owns the background goroutine of a push subscription. Backends embed
// it to get Subscribe-once and Close-waits semantics.
type Loop struct {
	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Start runs fn in a goroutine with a context that is cancelled by Stop or
// when ctx is done.
func (l *Loop) Start(ctx context.Context, fn func(ctx context.Context)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.started {
		return ErrAlreadySubscribed
	}
	l.started = true

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		fn(runCtx)
	}()
	return nil
}

// Stop cancels the loop and waits for it to return. Safe to call multiple
// times and before Start.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
