package model

import "time"

// MergeConcatRequest concatenates recorded clips in order
type MergeConcatRequest struct {
	ClipPaths         []string     `json:"clipPaths" validate:"required,min=1,dive,required"`
	WithOriginalAudio bool         `json:"withOriginalAudio"`
	Preset            ExportPreset `json:"preset" validate:"omitempty,oneof=passthrough high medium"`
	Container         Container    `json:"container" validate:"omitempty,oneof=mp4 mov"`
}

// MergeVoiceOverRequest lays an externally recorded audio take under a video
type MergeVoiceOverRequest struct {
	VideoPath string       `json:"videoPath" validate:"required"`
	AudioPath string       `json:"audioPath" validate:"required"`
	Mirror    bool         `json:"mirror"`
	Preset    ExportPreset `json:"preset" validate:"omitempty,oneof=passthrough high medium"`
	Container Container    `json:"container" validate:"omitempty,oneof=mp4 mov"`
}

// MergeStartResponse acknowledges a queued merge job
type MergeStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// MergeStatusResponse reports job progress
type MergeStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// MergeResultResponse carries the exported asset location
type MergeResultResponse struct {
	JobID           string    `json:"jobId"`
	OutputPath      string    `json:"outputPath"`
	DurationSeconds float64   `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// MergeCancelResponse acknowledges a cancel request
type MergeCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}
