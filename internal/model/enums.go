package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Merge kinds
type MergeKind string

const (
	MergeKindConcat    MergeKind = "concat"
	MergeKindVoiceOver MergeKind = "voiceover"
)

// Export presets
type ExportPreset string

const (
	PresetPassthrough ExportPreset = "passthrough"
	PresetHigh        ExportPreset = "high"
	PresetMedium      ExportPreset = "medium"
)

var ValidPresets = []ExportPreset{PresetPassthrough, PresetHigh, PresetMedium}

// Output containers
type Container string

const (
	ContainerMP4 Container = "mp4"
	ContainerMOV Container = "mov"
)

var ValidContainers = []Container{ContainerMP4, ContainerMOV}
