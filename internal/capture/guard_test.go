package capture

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardClampsElapsedToMax(t *testing.T) {
	limit := make(chan struct{})
	var once sync.Once

	g := NewDurationGuard(time.Millisecond, 20*time.Millisecond, nil, func() {
		once.Do(func() { close(limit) })
	})
	defer g.Stop()

	g.Resume()

	select {
	case <-limit:
	case <-time.After(2 * time.Second):
		t.Fatal("cap never hit")
	}

	// Elapsed is clamped to exactly the maximum, never past it.
	assert.Equal(t, 20*time.Millisecond, g.Elapsed())
	assert.True(t, g.Reached())
}

func TestGuardLimitFiresOnce(t *testing.T) {
	var limits atomic.Int64

	g := NewDurationGuard(time.Millisecond, 10*time.Millisecond, nil, func() {
		limits.Add(1)
	})
	defer g.Stop()

	g.Resume()

	require.Eventually(t, func() bool {
		return limits.Load() >= 1
	}, 2*time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), limits.Load())
}

func TestGuardNoProgressPastMax(t *testing.T) {
	var maxSeen atomic.Int64
	limit := make(chan struct{})
	var once sync.Once

	g := NewDurationGuard(time.Millisecond, 15*time.Millisecond, func(elapsed time.Duration) {
		for {
			cur := maxSeen.Load()
			if int64(elapsed) <= cur || maxSeen.CompareAndSwap(cur, int64(elapsed)) {
				return
			}
		}
	}, func() {
		once.Do(func() { close(limit) })
	})
	defer g.Stop()

	g.Resume()
	<-limit
	time.Sleep(10 * time.Millisecond)

	assert.LessOrEqual(t, maxSeen.Load(), int64(15*time.Millisecond))
}

func TestGuardAccumulatesAcrossTakes(t *testing.T) {
	g := NewDurationGuard(time.Millisecond, time.Hour, nil, nil)
	defer g.Stop()

	g.Resume()
	require.Eventually(t, func() bool {
		return g.Elapsed() >= 3*time.Millisecond
	}, 2*time.Second, time.Millisecond)
	g.Suspend()

	afterFirst := g.Elapsed()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, afterFirst, g.Elapsed(), "elapsed must not advance while suspended")

	g.Resume()
	require.Eventually(t, func() bool {
		return g.Elapsed() > afterFirst
	}, 2*time.Second, time.Millisecond)
}

func TestGuardResumeAfterCapIsNoop(t *testing.T) {
	limit := make(chan struct{})
	var once sync.Once

	g := NewDurationGuard(time.Millisecond, 5*time.Millisecond, nil, func() {
		once.Do(func() { close(limit) })
	})
	defer g.Stop()

	g.Resume()
	<-limit

	g.Resume()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 5*time.Millisecond, g.Elapsed())
	assert.True(t, g.Reached())
}

func TestGuardStartsSuspended(t *testing.T) {
	g := NewDurationGuard(time.Millisecond, time.Hour, nil, nil)
	defer g.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, time.Duration(0), g.Elapsed())
}
