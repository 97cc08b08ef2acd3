package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu        sync.Mutex
	recording bool
	dst       string
	device    Device
	torch     TorchMode
	stopped   bool
	startErr  error
	finished  chan RecordingResult
}

func newFakePipeline(dev Device) *fakePipeline {
	return &fakePipeline{device: dev, finished: make(chan RecordingResult, 8)}
}

func (p *fakePipeline) SwitchDevice(ctx context.Context, dev Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device = dev
	return nil
}

func (p *fakePipeline) StartRecording(ctx context.Context, dst string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.recording = true
	p.dst = dst
	return nil
}

func (p *fakePipeline) StopRecording(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.recording {
		return nil
	}
	p.recording = false
	p.finished <- RecordingResult{Path: p.dst}
	return nil
}

func (p *fakePipeline) SetTorch(ctx context.Context, mode TorchMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.torch = mode
	return nil
}

func (p *fakePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.finished)
	}
	return nil
}

func (p *fakePipeline) Finished() <-chan RecordingResult { return p.finished }

type fakeBackend struct {
	mu       sync.Mutex
	cameras  []Device
	mics     []Device
	pipeline *fakePipeline
	recorder *fakeRecorder
}

func (b *fakeBackend) Cameras(ctx context.Context) ([]Device, error) {
	return b.cameras, nil
}

func (b *fakeBackend) Microphones(ctx context.Context) ([]Device, error) {
	return b.mics, nil
}

func (b *fakeBackend) OpenPipeline(ctx context.Context, dev Device) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipeline = newFakePipeline(dev)
	return b.pipeline, nil
}

func (b *fakeBackend) OpenAudioRecorder(ctx context.Context, dev Device, dst string) (AudioRecorder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorder = newFakeRecorder(dst)
	return b.recorder, nil
}

func testBackend() *fakeBackend {
	return &fakeBackend{
		cameras: []Device{
			{ID: "cam-rear", Name: "rear", Position: PositionRear, HasTorch: true},
			{ID: "cam-front", Name: "front", Position: PositionFront},
		},
		mics: []Device{{ID: "mic0", Name: "default"}},
	}
}

func cameraConfig() CameraConfig {
	return CameraConfig{
		MaxDuration:  20 * time.Second,
		TickInterval: 10 * time.Millisecond,
		TempDir:      "",
	}
}

func newTestCamera(t *testing.T, backend *fakeBackend) *CameraSession {
	t.Helper()
	s := NewCameraSession("cam-session", backend, NewPermissionGate(AllowAll{}), cameraConfig(), zerolog.Nop())
	require.NoError(t, s.Prepare(context.Background()))
	t.Cleanup(func() { s.Cleanup(context.Background()) })
	return s
}

func waitEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestCameraPrepareSelectsRearCamera(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	snap := s.Snapshot()
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, PositionRear, snap.Position)
	assert.False(t, snap.Recording)
}

func TestCameraPrepareFrontFallback(t *testing.T) {
	backend := testBackend()
	backend.cameras = backend.cameras[1:] // front only

	s := newTestCamera(t, backend)
	assert.Equal(t, PositionFront, s.Snapshot().Position)
}

func TestCameraPrepareNoCamera(t *testing.T) {
	backend := testBackend()
	backend.cameras = nil

	s := NewCameraSession("s", backend, NewPermissionGate(AllowAll{}), cameraConfig(), zerolog.Nop())
	err := s.Prepare(context.Background())
	assert.ErrorIs(t, err, ErrNoCamera)
	assert.Equal(t, StateUninitialized, s.Snapshot().State)
}

type denyPrompter struct{}

func (denyPrompter) RequestAccess(ctx context.Context, kind DeviceKind) (bool, error) {
	return false, nil
}

func TestCameraPreparePermissionDenied(t *testing.T) {
	s := NewCameraSession("s", testBackend(), NewPermissionGate(denyPrompter{}), cameraConfig(), zerolog.Nop())
	err := s.Prepare(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCameraRecordStartStop(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	require.NoError(t, s.StartRecording(context.Background()))
	started := waitEvent(t, s.Events(), EventRecordingStarted)
	assert.NotEmpty(t, started.Path)
	assert.True(t, s.Snapshot().Recording)

	require.NoError(t, s.StopRecording(context.Background()))
	finished := waitEvent(t, s.Events(), EventRecordingFinished)
	assert.Equal(t, started.Path, finished.Path)
	assert.False(t, s.Snapshot().Recording)
}

func TestCameraStartWhileRecordingIsNoop(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	require.NoError(t, s.StartRecording(context.Background()))
	waitEvent(t, s.Events(), EventRecordingStarted)

	firstDst := backend.pipeline.dst
	require.NoError(t, s.StartRecording(context.Background()))

	// The active take keeps writing to the same file.
	assert.Equal(t, firstDst, backend.pipeline.dst)
}

func TestCameraStopWhileIdleIsNoop(t *testing.T) {
	s := newTestCamera(t, testBackend())
	assert.NoError(t, s.StopRecording(context.Background()))
}

func TestCameraEachTakeGetsFreshFile(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	require.NoError(t, s.StartRecording(context.Background()))
	first := waitEvent(t, s.Events(), EventRecordingStarted)
	require.NoError(t, s.StopRecording(context.Background()))
	waitEvent(t, s.Events(), EventRecordingFinished)

	require.NoError(t, s.StartRecording(context.Background()))
	second := waitEvent(t, s.Events(), EventRecordingStarted)

	assert.NotEqual(t, first.Path, second.Path)
}

func TestCameraForcedStopAtCap(t *testing.T) {
	backend := testBackend()
	cfg := CameraConfig{MaxDuration: 30 * time.Millisecond, TickInterval: time.Millisecond}
	s := NewCameraSession("s", backend, NewPermissionGate(AllowAll{}), cfg, zerolog.Nop())
	require.NoError(t, s.Prepare(context.Background()))
	t.Cleanup(func() { s.Cleanup(context.Background()) })

	require.NoError(t, s.StartRecording(context.Background()))
	waitEvent(t, s.Events(), EventRecordingStarted)

	// The forced stop arrives before the finished event for the take.
	forced := waitEvent(t, s.Events(), EventForcedStop)
	assert.InDelta(t, 0.03, forced.ElapsedSeconds, 1e-9)

	finished := waitEvent(t, s.Events(), EventRecordingFinished)
	assert.NotEmpty(t, finished.Path)
	waitEvent(t, s.Events(), EventPipelineStopped)

	snap := s.Snapshot()
	assert.True(t, snap.ReachedCap)
	assert.InDelta(t, 0.03, snap.ElapsedSeconds, 1e-9)

	// Further starts are refused silently once the cap is spent.
	require.NoError(t, s.StartRecording(context.Background()))
	assert.False(t, s.Snapshot().Recording)
}

func TestCameraSwitchCamera(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	require.NoError(t, s.SwitchCamera(context.Background()))
	assert.Equal(t, PositionFront, s.Snapshot().Position)

	require.NoError(t, s.SwitchCamera(context.Background()))
	assert.Equal(t, PositionRear, s.Snapshot().Position)
}

func TestCameraSwitchWithSingleCamera(t *testing.T) {
	backend := testBackend()
	backend.cameras = backend.cameras[:1] // rear only

	s := newTestCamera(t, backend)
	err := s.SwitchCamera(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCameraTorchCycle(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	mode, err := s.ToggleTorch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TorchAuto, mode)

	mode, _ = s.ToggleTorch(context.Background())
	assert.Equal(t, TorchOn, mode)

	mode, _ = s.ToggleTorch(context.Background())
	assert.Equal(t, TorchOff, mode)
}

func TestCameraTorchNoopWithoutHardware(t *testing.T) {
	backend := testBackend()
	backend.cameras = []Device{{ID: "cam", Position: PositionRear}} // no torch

	s := newTestCamera(t, backend)
	mode, err := s.ToggleTorch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TorchOff, mode)
}

func TestCameraCleanupRejectsFurtherOps(t *testing.T) {
	s := newTestCamera(t, testBackend())
	s.Cleanup(context.Background())

	assert.ErrorIs(t, s.StartRecording(context.Background()), ErrSessionTornDown)
	assert.ErrorIs(t, s.StopRecording(context.Background()), ErrSessionTornDown)
	assert.ErrorIs(t, s.SwitchCamera(context.Background()), ErrSessionTornDown)
	_, err := s.ToggleTorch(context.Background())
	assert.ErrorIs(t, err, ErrSessionTornDown)

	// Idempotent.
	s.Cleanup(context.Background())
}

func TestCameraCleanupWhileRecording(t *testing.T) {
	backend := testBackend()
	s := newTestCamera(t, backend)

	require.NoError(t, s.StartRecording(context.Background()))
	waitEvent(t, s.Events(), EventRecordingStarted)

	// Cleanup with a recording in flight must not panic or deadlock, and
	// late sink callbacks are dropped.
	s.Cleanup(context.Background())
	assert.Equal(t, StateTornDown, s.Snapshot().State)
}
