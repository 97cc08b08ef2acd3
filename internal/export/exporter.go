// Package export encodes compositions asynchronously.
package export

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cliptake/api/internal/media"
)

// Preset is an encode-quality profile.
type Preset string

const (
	// PresetPassthrough stream-copies where the composition allows it.
	PresetPassthrough Preset = "passthrough"
	PresetHigh        Preset = "high"
	PresetMedium      Preset = "medium"
)

// Container selects the output muxer.
type Container string

const (
	ContainerMP4 Container = "mp4"
	ContainerMOV Container = "mov"
)

// Status is the terminal state of an export job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

var (
	// ErrExportBusy rejects a second export while one is outstanding.
	ErrExportBusy = errors.New("an export is already in progress")
	// ErrExportCanceled marks a cancelled encode.
	ErrExportCanceled = errors.New("export canceled")
)

// Result is the single terminal outcome of a job.
type Result struct {
	Status     Status
	OutputPath string
	Err        error
}

// Job is a handle to one asynchronous encode. Its result fires exactly
// once on Done regardless of which terminal state occurred.
type Job struct {
	cancel context.CancelFunc
	done   chan Result
}

// Done delivers the terminal result. The channel is buffered; the result
// is available even if the consumer reads late.
func (j *Job) Done() <-chan Result { return j.done }

// Cancel requests cancellation. The encode checks the token before
// meaningful work begins and the process is interrupted if already running.
func (j *Job) Cancel() { j.cancel() }

// Encoder performs the actual encode of a composition to a destination.
type Encoder interface {
	Encode(ctx context.Context, comp *media.Composition, preset Preset, container Container, dest string) error
}

// Exporter runs at most one outstanding export at a time. A second Export
// call while one is active returns ErrExportBusy; completions on one
// Exporter never interleave.
type Exporter struct {
	enc  Encoder
	log  zerolog.Logger
	busy atomic.Bool
}

func New(enc Encoder, log zerolog.Logger) *Exporter {
	return &Exporter{enc: enc, log: log}
}

// Export begins an asynchronous encode of the composition.
func (e *Exporter) Export(ctx context.Context, comp *media.Composition, preset Preset, container Container, dest string) (*Job, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrExportBusy
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		cancel: cancel,
		done:   make(chan Result, 1),
	}

	go func() {
		defer e.busy.Store(false)
		defer cancel()

		// A job cancelled before it starts must not touch the encoder.
		if err := jobCtx.Err(); err != nil {
			e.log.Info().Str("dest", dest).Msg("export canceled before start")
			job.done <- Result{Status: StatusCanceled, Err: ErrExportCanceled}
			return
		}

		err := e.enc.Encode(jobCtx, comp, preset, container, dest)
		switch {
		case err == nil:
			e.log.Info().Str("dest", dest).Msg("export completed")
			job.done <- Result{Status: StatusCompleted, OutputPath: dest}
		case errors.Is(err, context.Canceled) || jobCtx.Err() != nil:
			e.log.Info().Str("dest", dest).Msg("export canceled")
			job.done <- Result{Status: StatusCanceled, Err: ErrExportCanceled}
		default:
			e.log.Error().Err(err).Str("dest", dest).Msg("export failed")
			job.done <- Result{Status: StatusFailed, Err: err}
		}
	}()

	return job, nil
}
