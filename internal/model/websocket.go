package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypeSession  = "session"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a job progress update
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Progress    int       `json:"progress"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSSessionEventMessage mirrors a capture session event to subscribers:
// recording started/finished/progress, torch changes, forced stops and
// playback position updates.
type WSSessionEventMessage struct {
	Type           string  `json:"type"`
	SessionID      string  `json:"sessionId"`
	Event          string  `json:"event"`
	Path           string  `json:"path,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
	Torch          string  `json:"torch,omitempty"`
	Error          string  `json:"error,omitempty"`
}
