package model

import "time"

// Job represents a background merge/export job in the system
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"payload,omitempty"` // JSON-encoded ExportJobPayload
	Result      []byte     `json:"result,omitempty"`  // JSON-encoded MergeResultResponse
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// Job types
const (
	JobTypeExport = "export"
)

// ExportJobPayload contains the data for a merge/export job
type ExportJobPayload struct {
	Kind              MergeKind    `json:"kind"`
	ClipPaths         []string     `json:"clipPaths,omitempty"`
	WithOriginalAudio bool         `json:"withOriginalAudio,omitempty"`
	VideoPath         string       `json:"videoPath,omitempty"`
	AudioPath         string       `json:"audioPath,omitempty"`
	Mirror            bool         `json:"mirror,omitempty"`
	Preset            ExportPreset `json:"preset"`
	Container         Container    `json:"container"`
}
