package capture

// EventType enumerates the session event stream consumed by the UI layer.
type EventType string

const (
	EventRecordingStarted  EventType = "recording_started"
	EventRecordingFinished EventType = "recording_finished"
	EventRecordingProgress EventType = "recording_progress"
	EventForcedStop        EventType = "forced_stop"
	EventTorchChanged      EventType = "torch_changed"
	EventPipelineStopped   EventType = "pipeline_stopped"
	EventRecordingFailed   EventType = "recording_failed"
)

// Event is a snapshot delivered to observers. Observers never mutate
// session-owned state; everything they need rides in the event.
type Event struct {
	Type           EventType
	SessionID      string
	Path           string
	ElapsedSeconds float64
	Torch          TorchMode
	Err            error
}
