// Package playback drives bounded preview of a playable asset: periodic
// position reporting with an enforced upper time bound.
package playback

import (
	"sync"
	"time"

	"github.com/cliptake/api/internal/timing"
)

// Player is the minimal surface the clock needs from a playable item.
type Player interface {
	Seek(pos time.Duration)
	Play()
	Pause()
	Position() time.Duration
}

// DefaultTickInterval is the position sampling period.
const DefaultTickInterval = 100 * time.Millisecond

// Clock samples playback position every tick and, when armed, halts
// playback the moment the position reaches the stop bound. Bound
// enforcement is one-shot: once it fires, the observer is torn down and
// must be re-armed by a subsequent Play.
type Clock struct {
	player     Player
	interval   time.Duration
	onPosition func(time.Duration)

	mu      sync.Mutex
	start   time.Duration
	stop    time.Duration
	enforce bool
	playing bool
	timer   *timing.DeadlineTimer
}

func NewClock(player Player, interval time.Duration, onPosition func(time.Duration)) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{
		player:     player,
		interval:   interval,
		onPosition: onPosition,
	}
}

// SetBounds configures the preview range. A new start bound immediately
// re-seeks playback to that position.
func (c *Clock) SetBounds(start, stop time.Duration) {
	c.mu.Lock()
	startChanged := start != c.start
	c.start = start
	c.stop = stop
	c.mu.Unlock()

	if startChanged {
		c.player.Pause()
		c.player.Seek(start)
		c.report(start)
	}
}

// Play begins playback. With enforceUpperBound set, the tick observer
// halts playback exactly when position reaches the stop bound, then
// disarms.
func (c *Clock) Play(enforceUpperBound bool) {
	c.mu.Lock()
	c.enforce = enforceUpperBound
	c.playing = true
	c.removeObserverLocked()
	c.timer = timing.NewDeadlineTimer(c.interval, c.tick)
	timer := c.timer
	c.mu.Unlock()

	timer.Start()
	c.player.Play()
}

func (c *Clock) tick() {
	pos := c.player.Position()
	c.report(pos)

	c.mu.Lock()
	halt := c.enforce && c.playing && pos >= c.stop
	if halt {
		c.playing = false
		c.enforce = false
		if c.timer != nil {
			// Cancel would deadlock from inside the handler; pause now,
			// tear down off the tick goroutine.
			c.timer.Pause()
			go c.removeObserver()
		}
	}
	c.mu.Unlock()

	if halt {
		c.player.Pause()
	}
}

// Stop pauses playback, seeks back to the configured start and removes the
// tick observer.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.playing = false
	c.enforce = false
	start := c.start
	c.mu.Unlock()

	c.player.Pause()
	c.player.Seek(start)
	c.report(start)
	c.removeObserver()
}

// Playing reports whether playback is running.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Clock) report(pos time.Duration) {
	if c.onPosition != nil {
		c.onPosition(pos)
	}
}

func (c *Clock) removeObserver() {
	c.mu.Lock()
	timer := c.timer
	c.timer = nil
	c.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
}

func (c *Clock) removeObserverLocked() {
	if c.timer != nil {
		timer := c.timer
		c.timer = nil
		go timer.Cancel()
	}
}
