package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cliptake/api/internal/model"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskTypeExport = "export:process"
)

// ErrJobCanceled rejects writes against a canceled job record. A cancel
// is terminal; a late completion or failure must not overwrite it.
var ErrJobCanceled = errors.New("job canceled")

// MergeService handles merge job management
type MergeService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	inspector   *asynq.Inspector
}

func NewMergeService(redisClient *redis.Client, asynqClient *asynq.Client, inspector *asynq.Inspector) *MergeService {
	return &MergeService{
		redis:       redisClient,
		asynqClient: asynqClient,
		inspector:   inspector,
	}
}

// StartConcat queues a job that concatenates recorded clips into one movie
func (s *MergeService) StartConcat(ctx context.Context, req *model.MergeConcatRequest) (*model.MergeStartResponse, error) {
	payload := &model.ExportJobPayload{
		Kind:              model.MergeKindConcat,
		ClipPaths:         req.ClipPaths,
		WithOriginalAudio: req.WithOriginalAudio,
		Preset:            req.Preset,
		Container:         req.Container,
	}
	if payload.Preset == "" {
		payload.Preset = model.PresetPassthrough
	}
	if payload.Container == "" {
		payload.Container = model.ContainerMOV
	}

	return s.start(ctx, payload)
}

// StartVoiceOver queues a job that lays a voice take under a video
func (s *MergeService) StartVoiceOver(ctx context.Context, req *model.MergeVoiceOverRequest) (*model.MergeStartResponse, error) {
	payload := &model.ExportJobPayload{
		Kind:      model.MergeKindVoiceOver,
		VideoPath: req.VideoPath,
		AudioPath: req.AudioPath,
		Mirror:    req.Mirror,
		Preset:    req.Preset,
		Container: req.Container,
	}
	if payload.Preset == "" {
		payload.Preset = model.PresetHigh
	}
	if payload.Container == "" {
		payload.Container = model.ContainerMOV
	}

	return s.start(ctx, payload)
}

func (s *MergeService) start(ctx context.Context, payload *model.ExportJobPayload) (*model.MergeStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	// Create job record
	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeExport,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job.Payload = payloadBytes

	// Save job to Redis
	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	// Create Asynq task
	task, err := newExportTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Enqueue the task. The task ID doubles as the job ID so Cancel can
	// reach the processing task through the inspector.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("export"),
		asynq.TaskID(jobID),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.MergeStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a merge job
func (s *MergeService) GetStatus(ctx context.Context, jobID string) (*model.MergeStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.MergeStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the result of a completed merge job
func (s *MergeService) GetResult(ctx context.Context, jobID string) (*model.MergeResultResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}

	var result model.MergeResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// Cancel cancels a merge job
func (s *MergeService) Cancel(ctx context.Context, jobID string) (*model.MergeCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("job already completed")
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	// Interrupt the worker if the task is already processing; the signal
	// cancels the handler context and the encode aborts. A task still
	// queued never sees the signal, the canceled record stops it at
	// pickup instead.
	if s.inspector != nil {
		if err := s.inspector.CancelProcessing(jobID); err != nil {
			return nil, fmt.Errorf("failed to signal running task: %w", err)
		}
	}

	return &model.MergeCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// IsCanceled reports whether a job was canceled (checked by the worker)
func (s *MergeService) IsCanceled(ctx context.Context, jobID string) bool {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == model.JobStatusCanceled
}

// UpdateJobProgress updates job progress (called by worker)
func (s *MergeService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == model.JobStatusCanceled {
		return ErrJobCanceled
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks job as completed (called by worker)
func (s *MergeService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == model.JobStatusCanceled {
		return ErrJobCanceled
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *MergeService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == model.JobStatusCanceled {
		return ErrJobCanceled
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// Helper methods

func (s *MergeService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *MergeService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func newExportTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExport, data), nil
}
