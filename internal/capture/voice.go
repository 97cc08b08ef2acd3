package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cliptake/api/pkg/tempfile"
)

// VoiceSession owns an audio-input device writing to a compressed .m4a
// sink. It mirrors CameraSession's permission/configure/record lifecycle
// with one deliberate asymmetry: ToggleRecording while recording means
// "finish now" rather than no-op.
type VoiceSession struct {
	id      string
	backend Backend
	gate    *PermissionGate
	log     zerolog.Logger

	tickInterval time.Duration
	tempDir      string

	mu          sync.Mutex
	state       State
	recording   bool
	tornDown    bool
	device      Device
	recorder    AudioRecorder
	guard       *DurationGuard
	maxDuration time.Duration
	outputPath  string

	events chan Event
}

// VoiceConfig bundles session construction parameters. MaxDuration is
// typically set to the video clip's remaining length before recording a
// voice-over for it.
type VoiceConfig struct {
	MaxDuration  time.Duration
	TickInterval time.Duration
	TempDir      string
}

func NewVoiceSession(id string, backend Backend, gate *PermissionGate, cfg VoiceConfig, log zerolog.Logger) *VoiceSession {
	return &VoiceSession{
		id:           id,
		backend:      backend,
		gate:         gate,
		log:          log.With().Str("session", id).Logger(),
		tickInterval: cfg.TickInterval,
		maxDuration:  cfg.MaxDuration,
		tempDir:      cfg.TempDir,
		state:        StateUninitialized,
		events:       make(chan Event, 64),
	}
}

func (s *VoiceSession) ID() string           { return s.id }
func (s *VoiceSession) Events() <-chan Event { return s.events }

// SetMaxDuration adjusts the recording cap. Only valid before the first
// recording starts.
func (s *VoiceSession) SetMaxDuration(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard != nil && s.guard.Elapsed() > 0 {
		return fmt.Errorf("%w: cap change after recording started", ErrInvalidOperation)
	}
	s.maxDuration = d
	if s.guard != nil {
		s.guard.Stop()
		s.guard = NewDurationGuard(s.tickInterval, d, s.onProgress, s.onLimit)
	}
	return nil
}

// Prepare acquires microphone permission, selects an input device and
// readies the compressed file sink.
func (s *VoiceSession) Prepare(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if s.state != StateUninitialized {
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
	s.state = StateIdle
	return nil
}

func (s *VoiceSession) configure(ctx context.Context) error {
	granted, err := s.gate.CheckAndAcquire(ctx, DeviceMicrophone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !granted {
		return ErrPermissionDenied
	}

	mics, err := s.backend.Microphones(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	if len(mics) == 0 {
		return ErrNoMicrophone
	}

	dst := tempfile.New(s.tempDir, ".m4a")
	recorder, err := s.backend.OpenAudioRecorder(ctx, mics[0], dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}

	s.mu.Lock()
	s.device = mics[0]
	s.recorder = recorder
	s.outputPath = dst
	if s.guard == nil {
		s.guard = NewDurationGuard(s.tickInterval, s.maxDuration, s.onProgress, s.onLimit)
	}
	s.mu.Unlock()

	go s.watchRecordings(recorder)
	return nil
}

func (s *VoiceSession) watchRecordings(r AudioRecorder) {
	for res := range r.Finished() {
		if res.Err != nil {
			// A failed audio write is non-fatal; the take is simply lost.
			s.log.Error().Err(res.Err).Msg("audio recording failed")
			continue
		}
		s.emit(Event{Type: EventRecordingFinished, SessionID: s.id, Path: res.Path})
	}
}

// ToggleRecording starts a recording, or finishes the active one. The
// finish-now interpretation of a second call is intentional and mirrors
// the device UX this session was built for; CameraSession.StartRecording
// deliberately no-ops instead.
func (s *VoiceSession) ToggleRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrSessionTornDown
	}
	if s.state != StateIdle && s.state != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: record in state %s", ErrInvalidOperation, s.state)
	}
	if s.recording {
		s.recording = false
		s.state = StateIdle
		recorder := s.recorder
		s.mu.Unlock()
		return s.finish(ctx, recorder)
	}
	if s.guard.Reached() {
		s.mu.Unlock()
		return nil
	}
	recorder := s.recorder
	s.recording = true
	s.state = StateRunning
	s.mu.Unlock()

	if err := recorder.Start(ctx); err != nil {
		s.mu.Lock()
		s.recording = false
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}
	s.guard.Resume()
	s.emit(Event{Type: EventRecordingStarted, SessionID: s.id, Path: s.OutputPath()})
	return nil
}

func (s *VoiceSession) finish(ctx context.Context, recorder AudioRecorder) error {
	s.guard.Suspend()
	return recorder.Stop(ctx)
}

// OutputPath returns the sink location for the current take.
func (s *VoiceSession) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPath
}

// Snapshot reports observer-visible state.
func (s *VoiceSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state,
		Recording: s.recording,
	}
	if s.guard != nil {
		snap.ElapsedSeconds = s.guard.Elapsed().Seconds()
		snap.ReachedCap = s.guard.Reached()
	}
	return snap
}

// Cleanup releases the recorder. Late async callbacks after Cleanup are
// dropped.
func (s *VoiceSession) Cleanup(ctx context.Context) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	s.state = StateTornDown
	wasRecording := s.recording
	s.recording = false
	recorder := s.recorder
	guard := s.guard
	output := s.outputPath
	s.recorder = nil
	close(s.events)
	s.mu.Unlock()

	if guard != nil {
		guard.Stop()
	}
	if wasRecording && recorder != nil {
		if err := recorder.Stop(ctx); err != nil {
			s.log.Warn().Err(err).Msg("recorder stop failed during cleanup")
		}
	}
	if recorder != nil {
		if err := recorder.Close(ctx); err != nil {
			s.log.Warn().Err(err).Msg("recorder close failed during cleanup")
		}
	}
	// A sink that never captured audio cannot be referenced by a merge
	// job; once a take exists the job owns the file.
	if guard == nil || guard.Elapsed() == 0 {
		if err := tempfile.Remove(output); err != nil {
			s.log.Warn().Err(err).Str("path", output).Msg("temp sink removal failed")
		}
	}
	s.log.Debug().Msg("voice session torn down")
}

func (s *VoiceSession) onProgress(elapsed time.Duration) {
	s.emit(Event{Type: EventRecordingProgress, SessionID: s.id, ElapsedSeconds: elapsed.Seconds()})
}

// onLimit finishes the take the instant the cap is reached; reaching the
// cap is a normal stop for a voice-over, not an error.
func (s *VoiceSession) onLimit() {
	s.mu.Lock()
	if s.tornDown || !s.recording {
		s.mu.Unlock()
		return
	}
	s.recording = false
	s.state = StateIdle
	recorder := s.recorder
	s.mu.Unlock()

	s.emit(Event{Type: EventForcedStop, SessionID: s.id, ElapsedSeconds: s.maxDuration.Seconds()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.finish(ctx, recorder); err != nil {
		s.log.Error().Err(err).Msg("forced stop: finalize failed")
	}
}

// emit sends under the session lock so Cleanup can close the channel
// without racing an in-flight send.
func (s *VoiceSession) emit(ev Event) {
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
