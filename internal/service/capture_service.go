package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cliptake/api/internal/capture"
	"github.com/cliptake/api/internal/config"
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CaptureService owns camera and voice-over sessions. Sessions are keyed
// by ID and every session event is mirrored to WebSocket subscribers.
type CaptureService struct {
	backend capture.Backend
	gate    *capture.PermissionGate
	hub     *websocket.Hub
	cfg     config.CaptureConfig
	log     zerolog.Logger

	mu      sync.Mutex
	cameras map[string]*capture.CameraSession
	voices  map[string]*capture.VoiceSession
}

func NewCaptureService(backend capture.Backend, gate *capture.PermissionGate, hub *websocket.Hub, cfg config.CaptureConfig, log zerolog.Logger) *CaptureService {
	return &CaptureService{
		backend: backend,
		gate:    gate,
		hub:     hub,
		cfg:     cfg,
		log:     log,
		cameras: make(map[string]*capture.CameraSession),
		voices:  make(map[string]*capture.VoiceSession),
	}
}

// CreateCameraSession configures a new camera session and starts it
func (s *CaptureService) CreateCameraSession(ctx context.Context) (*model.SessionResponse, error) {
	id := uuid.New().String()

	sess := capture.NewCameraSession(id, s.backend, s.gate, capture.CameraConfig{
		MaxDuration:  s.cfg.MaxRecording(),
		TickInterval: s.cfg.TickInterval(),
		TempDir:      s.cfg.TempDir,
	}, s.log)

	if err := sess.Prepare(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cameras[id] = sess
	s.mu.Unlock()

	go s.forwardEvents(id, sess.Events())

	return cameraResponse(sess), nil
}

// CreateVoiceSession configures a new voice-over session and starts it
func (s *CaptureService) CreateVoiceSession(ctx context.Context, req *model.CreateVoiceSessionRequest) (*model.SessionResponse, error) {
	id := uuid.New().String()

	max := s.cfg.MaxRecording()
	if req.MaxSeconds > 0 {
		max = time.Duration(req.MaxSeconds * float64(time.Second))
	}

	sess := capture.NewVoiceSession(id, s.backend, s.gate, capture.VoiceConfig{
		MaxDuration:  max,
		TickInterval: s.cfg.TickInterval(),
		TempDir:      s.cfg.TempDir,
	}, s.log)

	if err := sess.Prepare(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.voices[id] = sess
	s.mu.Unlock()

	go s.forwardEvents(id, sess.Events())

	return voiceResponse(sess), nil
}

// StartRecording begins a camera take. Already recording is a no-op.
func (s *CaptureService) StartRecording(ctx context.Context, sessionID string) (*model.SessionResponse, error) {
	sess, err := s.camera(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.StartRecording(ctx); err != nil {
		return nil, err
	}
	return cameraResponse(sess), nil
}

// StopRecording ends the current camera take. Not recording is a no-op.
func (s *CaptureService) StopRecording(ctx context.Context, sessionID string) (*model.SessionResponse, error) {
	sess, err := s.camera(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.StopRecording(ctx); err != nil {
		return nil, err
	}
	return cameraResponse(sess), nil
}

// SwitchCamera flips between front and rear devices
func (s *CaptureService) SwitchCamera(ctx context.Context, sessionID string) (*model.SessionResponse, error) {
	sess, err := s.camera(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.SwitchCamera(ctx); err != nil {
		return nil, err
	}
	return cameraResponse(sess), nil
}

// ToggleTorch cycles the torch mode on the active camera
func (s *CaptureService) ToggleTorch(ctx context.Context, sessionID string) (*model.TorchResponse, error) {
	sess, err := s.camera(sessionID)
	if err != nil {
		return nil, err
	}
	mode, err := sess.ToggleTorch(ctx)
	if err != nil {
		return nil, err
	}
	return &model.TorchResponse{SessionID: sessionID, Mode: string(mode)}, nil
}

// ToggleVoiceRecording starts a voice take, or finishes the one in flight
func (s *CaptureService) ToggleVoiceRecording(ctx context.Context, sessionID string) (*model.SessionResponse, error) {
	sess, err := s.voice(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.ToggleRecording(ctx); err != nil {
		return nil, err
	}
	return voiceResponse(sess), nil
}

// GetSession returns the current snapshot of either session kind
func (s *CaptureService) GetSession(sessionID string) (*model.SessionResponse, error) {
	s.mu.Lock()
	cam := s.cameras[sessionID]
	voice := s.voices[sessionID]
	s.mu.Unlock()

	switch {
	case cam != nil:
		return cameraResponse(cam), nil
	case voice != nil:
		return voiceResponse(voice), nil
	default:
		return nil, fmt.Errorf("session not found")
	}
}

// DeleteSession tears a session down and forgets it
func (s *CaptureService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	cam := s.cameras[sessionID]
	voice := s.voices[sessionID]
	delete(s.cameras, sessionID)
	delete(s.voices, sessionID)
	s.mu.Unlock()

	switch {
	case cam != nil:
		cam.Cleanup(ctx)
		return nil
	case voice != nil:
		voice.Cleanup(ctx)
		return nil
	default:
		return fmt.Errorf("session not found")
	}
}

func (s *CaptureService) camera(sessionID string) (*capture.CameraSession, error) {
	s.mu.Lock()
	sess := s.cameras[sessionID]
	s.mu.Unlock()
	if sess == nil {
		return nil, fmt.Errorf("session not found")
	}
	return sess, nil
}

func (s *CaptureService) voice(sessionID string) (*capture.VoiceSession, error) {
	s.mu.Lock()
	sess := s.voices[sessionID]
	s.mu.Unlock()
	if sess == nil {
		return nil, fmt.Errorf("session not found")
	}
	return sess, nil
}

// forwardEvents drains a session's event stream into the hub. Returns when
// the session tears down and closes its channel.
func (s *CaptureService) forwardEvents(sessionID string, events <-chan capture.Event) {
	for ev := range events {
		msg := model.WSSessionEventMessage{
			Type:           model.WSMessageTypeSession,
			SessionID:      sessionID,
			Event:          string(ev.Type),
			Path:           ev.Path,
			ElapsedSeconds: ev.ElapsedSeconds,
			Torch:          string(ev.Torch),
		}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		s.hub.BroadcastSessionEvent(sessionID, msg)
	}
}

func cameraResponse(sess *capture.CameraSession) *model.SessionResponse {
	snap := sess.Snapshot()
	return &model.SessionResponse{
		SessionID:      sess.ID(),
		State:          string(snap.State),
		Recording:      snap.Recording,
		Position:       string(snap.Position),
		Torch:          string(snap.Torch),
		ElapsedSeconds: snap.ElapsedSeconds,
		ReachedCap:     snap.ReachedCap,
	}
}

func voiceResponse(sess *capture.VoiceSession) *model.SessionResponse {
	snap := sess.Snapshot()
	return &model.SessionResponse{
		SessionID:      sess.ID(),
		State:          string(snap.State),
		Recording:      snap.Recording,
		ElapsedSeconds: snap.ElapsedSeconds,
		ReachedCap:     snap.ReachedCap,
		OutputPath:     sess.OutputPath(),
	}
}
