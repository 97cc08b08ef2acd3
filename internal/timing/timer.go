// Package timing provides the periodic tick source behind recording
// duration tracking and playback position reporting.
package timing

import (
	"sync"
	"time"
)

// DeadlineTimer fires a handler at a fixed interval on a dedicated
// goroutine until cancelled. It holds no reference to its owner beyond the
// handler closure; owners guard their own torn-down state and drop late
// deliveries.
type DeadlineTimer struct {
	interval time.Duration
	handler  func()

	mu       sync.Mutex
	paused   bool
	canceled bool
	started  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewDeadlineTimer builds a timer; Start begins delivery.
func NewDeadlineTimer(interval time.Duration, handler func()) *DeadlineTimer {
	return &DeadlineTimer{
		interval: interval,
		handler:  handler,
		done:     make(chan struct{}),
	}
}

// Start launches the tick goroutine. Calling Start twice is a no-op.
func (t *DeadlineTimer) Start() {
	t.mu.Lock()
	if t.started || t.canceled {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run()
}

func (t *DeadlineTimer) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if t.deliverable() {
				t.handler()
			}
		}
	}
}

func (t *DeadlineTimer) deliverable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.paused && !t.canceled
}

// Pause suppresses tick delivery without disturbing the interval.
// Safe to call from within the handler.
func (t *DeadlineTimer) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Resume re-enables delivery at the original interval. A resumed timer
// never replays ticks suppressed while paused.
func (t *DeadlineTimer) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

// Cancel stops the timer and waits for the tick goroutine to exit: once
// Cancel returns, no further handler invocation occurs. Cancel must not be
// called from inside the handler; handlers pause instead.
func (t *DeadlineTimer) Cancel() {
	t.mu.Lock()
	if t.canceled {
		t.mu.Unlock()
		t.wg.Wait()
		return
	}
	t.canceled = true
	close(t.done)
	started := t.started
	t.mu.Unlock()

	if started {
		t.wg.Wait()
	}
}
