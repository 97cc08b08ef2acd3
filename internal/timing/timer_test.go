package timing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerDeliversTicks(t *testing.T) {
	var ticks atomic.Int64
	fired := make(chan struct{}, 1)

	timer := NewDeadlineTimer(time.Millisecond, func() {
		if ticks.Add(1) == 3 {
			select {
			case fired <- struct{}{}:
			default:
			}
		}
	})
	timer.Start()
	defer timer.Cancel()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never reached three ticks")
	}
}

func TestNoTickAfterCancel(t *testing.T) {
	var ticks atomic.Int64

	timer := NewDeadlineTimer(time.Millisecond, func() {
		ticks.Add(1)
	})
	timer.Start()

	time.Sleep(10 * time.Millisecond)
	timer.Cancel()

	// Cancel waits for the tick goroutine, so the count is final.
	snapshot := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, snapshot, ticks.Load())
}

func TestPauseSuppressesDelivery(t *testing.T) {
	var ticks atomic.Int64

	timer := NewDeadlineTimer(time.Millisecond, func() {
		ticks.Add(1)
	})
	timer.Pause()
	timer.Start()
	defer timer.Cancel()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(0), ticks.Load())

	timer.Resume()
	require.Eventually(t, func() bool {
		return ticks.Load() > 0
	}, time.Second, time.Millisecond)
}

func TestPauseFromHandler(t *testing.T) {
	var ticks atomic.Int64
	var timer *DeadlineTimer
	timer = NewDeadlineTimer(time.Millisecond, func() {
		ticks.Add(1)
		timer.Pause()
	})
	timer.Start()
	defer timer.Cancel()

	require.Eventually(t, func() bool {
		return ticks.Load() == 1
	}, time.Second, time.Millisecond)

	// Pause took effect from inside the handler; no further ticks arrive.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(1), ticks.Load())
}

func TestStartAfterCancelIsNoop(t *testing.T) {
	var ticks atomic.Int64
	timer := NewDeadlineTimer(time.Millisecond, func() {
		ticks.Add(1)
	})
	timer.Cancel()
	timer.Start()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(0), ticks.Load())
}

func TestCancelTwice(t *testing.T) {
	timer := NewDeadlineTimer(time.Millisecond, func() {})
	timer.Start()
	timer.Cancel()
	timer.Cancel()
}
