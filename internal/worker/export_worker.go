package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/cliptake/api/internal/export"
	"github.com/cliptake/api/internal/media"
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/service"
	"github.com/cliptake/api/internal/websocket"
	"github.com/cliptake/api/pkg/response"
	"github.com/cliptake/api/pkg/tempfile"
)

// JobStore is the job-record surface the worker writes through. A store
// write against a canceled record returns service.ErrJobCanceled.
type JobStore interface {
	IsCanceled(ctx context.Context, jobID string) bool
	UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error
	CompleteJob(ctx context.Context, jobID string, result interface{}) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
}

// ExportWorker processes merge/export jobs
type ExportWorker struct {
	store   JobStore
	hub     *websocket.Hub
	loader  media.Loader
	builder *media.Builder
	encoder export.Encoder
	outDir  string
	log     zerolog.Logger
}

// NewExportWorker creates a new export worker
func NewExportWorker(store JobStore, hub *websocket.Hub, loader media.Loader, builder *media.Builder, encoder export.Encoder, outDir string, log zerolog.Logger) *ExportWorker {
	return &ExportWorker{
		store:   store,
		hub:     hub,
		loader:  loader,
		builder: builder,
		encoder: encoder,
		outDir:  outDir,
		log:     log,
	}
}

// ProcessTask handles export task processing
func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log := w.log.With().Str("job", jobID).Logger()
	log.Info().Msg("starting export job")

	// A job canceled before the worker picked it up does nothing.
	if w.store.IsCanceled(ctx, jobID) {
		log.Info().Msg("export job canceled before start")
		return nil
	}

	var payload model.ExportJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal export payload: %w", err)
	}

	w.progress(ctx, jobID, 10, "Probing source files...")

	comp, err := w.buildComposition(ctx, &payload)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return fmt.Errorf("failed to build composition: %w", err)
	}

	w.progress(ctx, jobID, 40, "Encoding...")

	if w.store.IsCanceled(ctx, jobID) {
		log.Info().Msg("export job canceled")
		return nil
	}

	dest := tempfile.New(w.outDir, "."+string(payload.Container))
	exporter := export.New(w.encoder, log)

	job, err := exporter.Export(ctx, comp, export.Preset(payload.Preset), export.Container(payload.Container), dest)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return fmt.Errorf("failed to start export: %w", err)
	}

	res := <-job.Done()
	switch res.Status {
	case export.StatusCompleted:
		// A cancel can land while the encode runs its last stretch. The
		// cancel stays terminal: drop the output, never report success.
		if w.store.IsCanceled(ctx, jobID) {
			_ = tempfile.Remove(res.OutputPath)
			log.Info().Msg("export job canceled, discarding output")
			return nil
		}
		result := &model.MergeResultResponse{
			JobID:           jobID,
			OutputPath:      res.OutputPath,
			DurationSeconds: comp.Duration().Seconds(),
			CreatedAt:       time.Now(),
		}
		if err := w.store.CompleteJob(ctx, jobID, result); err != nil {
			if errors.Is(err, service.ErrJobCanceled) {
				_ = tempfile.Remove(res.OutputPath)
				log.Info().Msg("export job canceled, discarding output")
				return nil
			}
			log.Error().Err(err).Msg("failed to persist job result")
		}
		w.hub.BroadcastComplete(jobID, result)
		log.Info().Str("output", res.OutputPath).Msg("export job completed")
		return nil

	case export.StatusCanceled:
		_ = tempfile.Remove(dest)
		log.Info().Msg("export job canceled during encode")
		return nil

	default:
		w.failJob(ctx, jobID, res.Err.Error())
		return fmt.Errorf("encode failed: %w", res.Err)
	}
}

// buildComposition probes the sources and assembles the timeline for the
// requested merge kind.
func (w *ExportWorker) buildComposition(ctx context.Context, payload *model.ExportJobPayload) (*media.Composition, error) {
	switch payload.Kind {
	case model.MergeKindConcat:
		assets := make([]*media.Asset, 0, len(payload.ClipPaths))
		for _, path := range payload.ClipPaths {
			asset, err := w.loader.Load(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load clip %s: %w", path, err)
			}
			assets = append(assets, asset)
		}
		return w.builder.Concatenate(assets, payload.WithOriginalAudio), nil

	case model.MergeKindVoiceOver:
		video, err := w.loader.Load(ctx, payload.VideoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load video: %w", err)
		}
		voice, err := w.loader.Load(ctx, payload.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load voice take: %w", err)
		}
		return w.builder.MergeVideoWithVoiceOver(video, voice, payload.Mirror)

	default:
		return nil, fmt.Errorf("unknown merge kind: %s", payload.Kind)
	}
}

func (w *ExportWorker) progress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.store.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
		if errors.Is(err, service.ErrJobCanceled) {
			return
		}
		w.log.Error().Err(err).Str("job", jobID).Msg("failed to update job progress")
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *ExportWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.store.FailJob(ctx, jobID, errMsg); err != nil {
		if errors.Is(err, service.ErrJobCanceled) {
			w.log.Info().Str("job", jobID).Msg("failure after cancel, keeping canceled status")
			return
		}
		w.log.Error().Err(err).Str("job", jobID).Msg("failed to persist job failure")
	}
	w.hub.BroadcastError(jobID, response.CodeExportFailed, errMsg)
}
