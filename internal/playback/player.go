package playback

import (
	"sync"
	"time"
)

// AssetPlayer is a wall-clock position source over a fixed-duration asset.
// The server does not decode frames; clients render, the player only keeps
// an authoritative position for bounded previews.
type AssetPlayer struct {
	duration time.Duration

	mu      sync.Mutex
	origin  time.Duration
	started time.Time
	playing bool
}

func NewAssetPlayer(duration time.Duration) *AssetPlayer {
	return &AssetPlayer{duration: duration}
}

func (p *AssetPlayer) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}
	p.origin = pos
	p.started = time.Now()
}

func (p *AssetPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.playing = true
	p.started = time.Now()
}

func (p *AssetPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.origin = p.positionLocked()
	p.playing = false
}

func (p *AssetPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *AssetPlayer) positionLocked() time.Duration {
	pos := p.origin
	if p.playing {
		pos += time.Since(p.started)
	}
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}
