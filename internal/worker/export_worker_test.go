package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliptake/api/internal/export"
	"github.com/cliptake/api/internal/media"
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/service"
	ws "github.com/cliptake/api/internal/websocket"
)

type fakeStore struct {
	mu            sync.Mutex
	canceled      bool
	completeCalls int
	failCalls     int
	lastResult    interface{}
	lastError     string
}

func (s *fakeStore) setCanceled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = v
}

func (s *fakeStore) IsCanceled(ctx context.Context, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

func (s *fakeStore) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return service.ErrJobCanceled
	}
	return nil
}

func (s *fakeStore) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return service.ErrJobCanceled
	}
	s.completeCalls++
	s.lastResult = result
	return nil
}

func (s *fakeStore) FailJob(ctx context.Context, jobID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return service.ErrJobCanceled
	}
	s.failCalls++
	s.lastError = errMsg
	return nil
}

func (s *fakeStore) completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeCalls
}

func (s *fakeStore) failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failCalls
}

type workerLoader struct{}

func (workerLoader) Load(ctx context.Context, path string) (*media.Asset, error) {
	dur := media.FromSeconds(5, media.DefaultTimescale)
	return &media.Asset{
		Path:     path,
		Duration: dur,
		Tracks: []media.Track{
			{Kind: media.TrackVideo, Range: media.NewTimeRange(media.Zero, dur), Transform: media.Identity},
			{Kind: media.TrackAudio, Range: media.NewTimeRange(media.Zero, dur)},
		},
	}, nil
}

type workerEncoder struct {
	mu       sync.Mutex
	calls    int
	err      error
	onEncode func()
	block    bool
}

func (e *workerEncoder) Encode(ctx context.Context, comp *media.Composition, preset export.Preset, container export.Container, dest string) error {
	e.mu.Lock()
	e.calls++
	hook := e.onEncode
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	if e.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.err
}

func (e *workerEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newExportTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()

	payload := &model.ExportJobPayload{
		Kind:              model.MergeKindConcat,
		ClipPaths:         []string{"a.mp4", "b.mp4"},
		WithOriginalAudio: true,
		Preset:            model.PresetPassthrough,
		Container:         model.ContainerMOV,
	}
	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	data, err := json.Marshal(map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payloadBytes),
	})
	require.NoError(t, err)

	return asynq.NewTask(service.TaskTypeExport, data)
}

func newWorker(t *testing.T, store *fakeStore, enc *workerEncoder) *ExportWorker {
	t.Helper()

	hub := ws.NewHub()
	go hub.Run()

	return NewExportWorker(store, hub, workerLoader{}, media.NewBuilder(zerolog.Nop()), enc, t.TempDir(), zerolog.Nop())
}

func TestWorkerCompletesJob(t *testing.T) {
	store := &fakeStore{}
	enc := &workerEncoder{}
	w := newWorker(t, store, enc)

	err := w.ProcessTask(context.Background(), newExportTask(t, "job-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, store.completed())
	assert.Equal(t, 0, store.failed())
	result, ok := store.lastResult.(*model.MergeResultResponse)
	require.True(t, ok)
	assert.NotEmpty(t, result.OutputPath)
	assert.InDelta(t, 10.0, result.DurationSeconds, 1e-9)
}

func TestWorkerCancelBeforePickup(t *testing.T) {
	store := &fakeStore{canceled: true}
	enc := &workerEncoder{}
	w := newWorker(t, store, enc)

	err := w.ProcessTask(context.Background(), newExportTask(t, "job-2"))
	require.NoError(t, err)

	assert.Equal(t, 0, enc.callCount())
	assert.Equal(t, 0, store.completed())
	assert.Equal(t, 0, store.failed())
}

func TestWorkerCancelDuringEncodeStaysCanceled(t *testing.T) {
	store := &fakeStore{}
	enc := &workerEncoder{}
	enc.onEncode = func() { store.setCanceled(true) }
	w := newWorker(t, store, enc)

	err := w.ProcessTask(context.Background(), newExportTask(t, "job-3"))
	require.NoError(t, err)

	// The encode ran to its end, but the record stays canceled.
	assert.Equal(t, 1, enc.callCount())
	assert.Equal(t, 0, store.completed())
	assert.Equal(t, 0, store.failed())
}

func TestWorkerInterruptedEncodeIsNotAFailure(t *testing.T) {
	store := &fakeStore{}
	enc := &workerEncoder{block: true}
	w := newWorker(t, store, enc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		store.setCanceled(true)
		cancel()
	}()

	err := w.ProcessTask(ctx, newExportTask(t, "job-4"))
	require.NoError(t, err)

	assert.Equal(t, 0, store.completed())
	assert.Equal(t, 0, store.failed())
}

func TestWorkerEncoderFailure(t *testing.T) {
	store := &fakeStore{}
	enc := &workerEncoder{err: assert.AnError}
	w := newWorker(t, store, enc)

	err := w.ProcessTask(context.Background(), newExportTask(t, "job-5"))
	require.Error(t, err)

	assert.Equal(t, 0, store.completed())
	assert.Equal(t, 1, store.failed())
	assert.Contains(t, store.lastError, assert.AnError.Error())
}
