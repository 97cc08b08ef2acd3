package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cliptake/api/pkg/tempfile"
)

// State is the capture session lifecycle. Transitions are driven only by
// the owning session. Running means the pipeline is live and previewing;
// whether a take is being written is tracked separately, so a session is
// running both between and during recordings. Stopping is only passed
// through when the duration cap forces the whole pipeline down.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateConfiguring   State = "configuring"
	StateIdle          State = "idle"
	StateRunning       State = "running"
	StateStopping      State = "stopping"
	StateTornDown      State = "torn_down"
)

// CameraSession owns camera selection, the continuous capture pipeline and
// its movie-file sink. Recording is bounded by a DurationGuard; the cap
// applies to the session's total recorded time.
type CameraSession struct {
	id      string
	backend Backend
	gate    *PermissionGate
	log     zerolog.Logger

	maxDuration  time.Duration
	tickInterval time.Duration
	tempDir      string

	mu        sync.Mutex
	state     State
	recording bool
	tornDown  bool
	cameras   map[CameraPosition]Device
	current   Device
	position  CameraPosition
	torch     TorchMode
	pipeline  Pipeline
	guard     *DurationGuard

	events chan Event
}

// CameraConfig bundles session construction parameters.
type CameraConfig struct {
	MaxDuration  time.Duration
	TickInterval time.Duration
	TempDir      string
}

func NewCameraSession(id string, backend Backend, gate *PermissionGate, cfg CameraConfig, log zerolog.Logger) *CameraSession {
	return &CameraSession{
		id:           id,
		backend:      backend,
		gate:         gate,
		log:          log.With().Str("session", id).Logger(),
		maxDuration:  cfg.MaxDuration,
		tickInterval: cfg.TickInterval,
		tempDir:      cfg.TempDir,
		state:        StateUninitialized,
		torch:        TorchOff,
		events:       make(chan Event, 64),
	}
}

// ID returns the session identifier.
func (s *CameraSession) ID() string { return s.id }

// Events exposes the session event stream. The channel closes when the
// session is torn down.
func (s *CameraSession) Events() <-chan Event { return s.events }

// Prepare acquires camera and microphone permission, enumerates devices,
// selects the rear camera (front as fallback), wires the movie sink and
// starts the continuous pipeline. On failure the session is left not
// running and Prepare must be retried from scratch.
func (s *CameraSession) Prepare(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if s.state != StateUninitialized && s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: prepare in state %s", ErrInvalidOperation, s.state)
	}
	s.state = StateConfiguring
	s.mu.Unlock()

	err := s.configure(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return ErrSessionTornDown
	}
	if err != nil {
		s.state = StateUninitialized
		return err
	}
	s.state = StateRunning
	return nil
}

func (s *CameraSession) configure(ctx context.Context) error {
	// The capture pipeline records sound with the movie, so both prompts
	// must resolve before configuration proceeds.
	for _, kind := range []DeviceKind{DeviceCamera, DeviceMicrophone} {
		granted, err := s.gate.CheckAndAcquire(ctx, kind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		if !granted {
			return ErrPermissionDenied
		}
	}

	cameras, err := s.backend.Cameras(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	if len(cameras) == 0 {
		return ErrNoCamera
	}

	byPosition := make(map[CameraPosition]Device)
	for _, cam := range cameras {
		if _, ok := byPosition[cam.Position]; !ok {
			byPosition[cam.Position] = cam
		}
	}

	current, ok := byPosition[PositionRear]
	position := PositionRear
	if !ok {
		current, ok = byPosition[PositionFront]
		position = PositionFront
	}
	if !ok {
		return ErrNoCamera
	}

	pipeline, err := s.backend.OpenPipeline(ctx, current)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}

	s.mu.Lock()
	s.cameras = byPosition
	s.current = current
	s.position = position
	s.pipeline = pipeline
	if s.guard == nil {
		s.guard = NewDurationGuard(s.tickInterval, s.maxDuration, s.onProgress, s.onLimit)
	}
	s.mu.Unlock()

	go s.watchRecordings(pipeline)
	return nil
}

// watchRecordings forwards the sink's completion signals; exactly one
// finished event per start/stop pair.
func (s *CameraSession) watchRecordings(p Pipeline) {
	for res := range p.Finished() {
		if res.Err != nil {
			s.log.Error().Err(res.Err).Msg("movie file write failed")
			s.emit(Event{Type: EventRecordingFailed, SessionID: s.id, Err: res.Err})
			continue
		}
		s.emit(Event{Type: EventRecordingFinished, SessionID: s.id, Path: res.Path})
	}
}

// StartRecording begins writing to a fresh temporary file. It is a no-op
// while a recording is active or once the duration cap has been reached —
// unlike VoiceSession.ToggleRecording, which treats a second call as
// finish-now.
func (s *CameraSession) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if s.recording || (s.guard != nil && s.guard.Reached()) {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: start recording in state %s", ErrInvalidOperation, s.state)
	}
	pipeline := s.pipeline
	s.recording = true
	s.mu.Unlock()

	dst := tempfile.New(s.tempDir, ".mp4")
	if err := pipeline.StartRecording(ctx, dst); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return err
	}

	s.guard.Resume()
	s.emit(Event{Type: EventRecordingStarted, SessionID: s.id, Path: dst})
	return nil
}

// StopRecording finalizes the file write; the finished event follows from
// the sink's completion signal.
func (s *CameraSession) StopRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	pipeline := s.pipeline
	s.mu.Unlock()

	s.guard.Suspend()
	return pipeline.StopRecording(ctx)
}

// SwitchCamera atomically swaps the active input between front and rear
// while the pipeline keeps running.
func (s *CameraSession) SwitchCamera(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if s.state != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: switch camera in state %s", ErrInvalidOperation, s.state)
	}
	target := PositionRear
	if s.position == PositionRear {
		target = PositionFront
	}
	dev, ok := s.cameras[target]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: no %s camera", ErrInvalidOperation, target)
	}
	pipeline := s.pipeline
	s.mu.Unlock()

	if err := pipeline.SwitchDevice(ctx, dev); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = dev
	s.position = target
	s.mu.Unlock()
	return nil
}

// ToggleTorch cycles the torch mode. No-op when the active device has no
// torch; the current mode is returned either way.
func (s *CameraSession) ToggleTorch(ctx context.Context) (TorchMode, error) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return TorchOff, ErrSessionTornDown
	}
	if !s.current.HasTorch {
		mode := s.torch
		s.mu.Unlock()
		return mode, nil
	}
	next := s.torch.Next()
	s.torch = next
	pipeline := s.pipeline
	s.mu.Unlock()

	if pipeline != nil {
		if err := pipeline.SetTorch(ctx, next); err != nil {
			return next, err
		}
	}
	s.emit(Event{Type: EventTorchChanged, SessionID: s.id, Torch: next})
	return next, nil
}

// Snapshot reports observer-visible state.
type Snapshot struct {
	State          State
	Recording      bool
	Position       CameraPosition
	Torch          TorchMode
	ElapsedSeconds float64
	ReachedCap     bool
}

func (s *CameraSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state,
		Recording: s.recording,
		Position:  s.position,
		Torch:     s.torch,
	}
	if s.guard != nil {
		snap.ElapsedSeconds = s.guard.Elapsed().Seconds()
		snap.ReachedCap = s.guard.Reached()
	}
	return snap
}

// Cleanup stops the pipeline and releases all device handles. Safe to call
// with async work outstanding: late callbacks detect the torn-down state
// and drop. All operations after Cleanup return ErrSessionTornDown.
func (s *CameraSession) Cleanup(ctx context.Context) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	s.state = StateTornDown
	s.recording = false
	pipeline := s.pipeline
	guard := s.guard
	s.pipeline = nil
	s.cameras = nil
	close(s.events)
	s.mu.Unlock()

	if guard != nil {
		guard.Stop()
	}
	if pipeline != nil {
		if err := pipeline.Stop(ctx); err != nil {
			s.log.Warn().Err(err).Msg("pipeline stop failed during cleanup")
		}
	}
	s.log.Debug().Msg("camera session torn down")
}

// onProgress runs on the guard's timer goroutine.
func (s *CameraSession) onProgress(elapsed time.Duration) {
	s.emit(Event{Type: EventRecordingProgress, SessionID: s.id, ElapsedSeconds: elapsed.Seconds()})
}

// onLimit force-stops the recording and the whole pipeline the instant the
// cap is reached. The forced-stop event is emitted before the file is
// finalized so it happens-before the finished event.
func (s *CameraSession) onLimit() {
	s.mu.Lock()
	if s.tornDown || !s.recording {
		s.mu.Unlock()
		return
	}
	s.recording = false
	s.state = StateStopping
	pipeline := s.pipeline
	s.mu.Unlock()

	s.emit(Event{Type: EventForcedStop, SessionID: s.id, ElapsedSeconds: s.maxDuration.Seconds()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pipeline.StopRecording(ctx); err != nil {
		s.log.Error().Err(err).Msg("forced stop: finalize failed")
	}
	if err := pipeline.Stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("forced stop: pipeline stop failed")
	}

	s.mu.Lock()
	if !s.tornDown {
		s.state = StateIdle
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventPipelineStopped, SessionID: s.id})
}

// emit drops events once the session is torn down and sheds progress
// events under backpressure rather than blocking a device callback. The
// send happens under the session lock so Cleanup can close the channel
// without racing an in-flight send.
func (s *CameraSession) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Warn().Str("event", string(ev.Type)).Msg("dropping session event, observer too slow")
	}
}
