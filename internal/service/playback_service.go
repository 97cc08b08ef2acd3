package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cliptake/api/internal/config"
	"github.com/cliptake/api/internal/media"
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/playback"
	"github.com/cliptake/api/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PlaybackService owns bounded preview sessions over exported assets
type PlaybackService struct {
	loader media.Loader
	hub    *websocket.Hub
	cfg    config.PlaybackConfig
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*playbackSession
}

type playbackSession struct {
	id     string
	asset  *media.Asset
	player *playback.AssetPlayer
	clock  *playback.Clock
	start  time.Duration
	stop   time.Duration
}

func NewPlaybackService(loader media.Loader, hub *websocket.Hub, cfg config.PlaybackConfig, log zerolog.Logger) *PlaybackService {
	return &PlaybackService{
		loader:   loader,
		hub:      hub,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*playbackSession),
	}
}

// Create probes the asset and opens a preview session over its full range
func (s *PlaybackService) Create(ctx context.Context, req *model.CreatePlaybackRequest) (*model.PlaybackResponse, error) {
	asset, err := s.loader.Load(ctx, req.AssetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe asset: %w", err)
	}

	id := uuid.New().String()
	duration := time.Duration(asset.Duration.Seconds() * float64(time.Second))
	player := playback.NewAssetPlayer(duration)

	sess := &playbackSession{
		id:     id,
		asset:  asset,
		player: player,
		stop:   duration,
	}
	sess.clock = playback.NewClock(player, s.cfg.TickInterval(), func(pos time.Duration) {
		s.hub.BroadcastSessionEvent(id, model.WSSessionEventMessage{
			Type:           model.WSMessageTypeSession,
			SessionID:      id,
			Event:          "position",
			ElapsedSeconds: pos.Seconds(),
		})
	})

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return s.response(sess), nil
}

// SetBounds narrows the preview range. A changed start re-seeks playback.
func (s *PlaybackService) SetBounds(sessionID string, req *model.PlaybackBoundsRequest) (*model.PlaybackResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Duration(req.StartSeconds * float64(time.Second))
	stop := time.Duration(req.StopSeconds * float64(time.Second))

	s.mu.Lock()
	sess.start = start
	sess.stop = stop
	s.mu.Unlock()

	sess.clock.SetBounds(start, stop)
	return s.response(sess), nil
}

// Play starts playback. With EnforceUpperBound set, playback halts exactly
// when the position reaches the stop bound.
func (s *PlaybackService) Play(sessionID string, req *model.PlaybackPlayRequest) (*model.PlaybackResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.clock.Play(req.EnforceUpperBound)
	return s.response(sess), nil
}

// Stop pauses playback and rewinds to the start bound
func (s *PlaybackService) Stop(sessionID string) (*model.PlaybackResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.clock.Stop()
	return s.response(sess), nil
}

// Get reports current preview state
func (s *PlaybackService) Get(sessionID string) (*model.PlaybackResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.response(sess), nil
}

// Delete tears the preview down
func (s *PlaybackService) Delete(sessionID string) error {
	s.mu.Lock()
	sess := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if sess == nil {
		return fmt.Errorf("session not found")
	}
	sess.clock.Stop()
	return nil
}

func (s *PlaybackService) session(sessionID string) (*playbackSession, error) {
	s.mu.Lock()
	sess := s.sessions[sessionID]
	s.mu.Unlock()
	if sess == nil {
		return nil, fmt.Errorf("session not found")
	}
	return sess, nil
}

func (s *PlaybackService) response(sess *playbackSession) *model.PlaybackResponse {
	s.mu.Lock()
	start := sess.start
	stop := sess.stop
	s.mu.Unlock()

	return &model.PlaybackResponse{
		SessionID:       sess.id,
		AssetPath:       sess.asset.Path,
		DurationSeconds: sess.asset.Duration.Seconds(),
		PositionSeconds: sess.player.Position().Seconds(),
		Playing:         sess.clock.Playing(),
		StartSeconds:    start.Seconds(),
		StopSeconds:     stop.Seconds(),
	}
}
