package capture

import (
	"sync"
	"time"

	"github.com/cliptake/api/internal/timing"
)

// DurationGuard enforces a maximum recording length for one session. It
// consumes DeadlineTimer ticks, advancing elapsed time by the tick interval
// while recording. Elapsed is monotonically non-decreasing and clamps to
// exactly the maximum: the forced-stop callback fires on the tick where
// elapsed reaches the cap, exactly once.
//
// Elapsed accumulates across start/stop pairs on the same session; the cap
// bounds the session's total recorded time, not a single take.
type DurationGuard struct {
	interval time.Duration
	max      time.Duration

	onProgress func(elapsed time.Duration)
	onLimit    func()

	mu       sync.Mutex
	elapsed  time.Duration
	limitHit bool
	timer    *timing.DeadlineTimer
}

func NewDurationGuard(interval, max time.Duration, onProgress func(time.Duration), onLimit func()) *DurationGuard {
	g := &DurationGuard{
		interval:   interval,
		max:        max,
		onProgress: onProgress,
		onLimit:    onLimit,
	}
	g.timer = timing.NewDeadlineTimer(interval, g.advance)
	g.timer.Pause()
	g.timer.Start()
	return g
}

func (g *DurationGuard) advance() {
	g.mu.Lock()
	if g.limitHit {
		g.mu.Unlock()
		return
	}
	g.elapsed += g.interval
	hit := false
	if g.elapsed >= g.max {
		g.elapsed = g.max
		g.limitHit = true
		hit = true
	}
	elapsed := g.elapsed
	g.mu.Unlock()

	if hit {
		// Stop ticking before reporting so no progress update can follow
		// the forced stop.
		g.timer.Pause()
	}
	if g.onProgress != nil {
		g.onProgress(elapsed)
	}
	if hit && g.onLimit != nil {
		g.onLimit()
	}
}

// Resume starts or resumes elapsed tracking. No-op once the cap was hit.
func (g *DurationGuard) Resume() {
	g.mu.Lock()
	hit := g.limitHit
	g.mu.Unlock()
	if hit {
		return
	}
	g.timer.Resume()
}

// Suspend pauses elapsed tracking between recordings.
func (g *DurationGuard) Suspend() {
	g.timer.Pause()
}

// Stop cancels the underlying timer. Must not be called from the guard's
// own callbacks.
func (g *DurationGuard) Stop() {
	g.timer.Cancel()
}

// Elapsed returns the accumulated recording time.
func (g *DurationGuard) Elapsed() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsed
}

// Reached reports whether the cap has been hit.
func (g *DurationGuard) Reached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limitHit
}
