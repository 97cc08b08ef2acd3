package model

// CreateVoiceSessionRequest configures a voice-over session. MaxSeconds is
// usually the remaining length of the clip being dubbed.
type CreateVoiceSessionRequest struct {
	MaxSeconds float64 `json:"maxSeconds" validate:"omitempty,gt=0,lte=3600"`
}

// SessionResponse reports a capture session's observer-visible state
type SessionResponse struct {
	SessionID      string  `json:"sessionId"`
	State          string  `json:"state"`
	Recording      bool    `json:"recording"`
	Position       string  `json:"position,omitempty"`
	Torch          string  `json:"torch,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	ReachedCap     bool    `json:"reachedCap"`
	OutputPath     string  `json:"outputPath,omitempty"`
}

// TorchResponse reports the torch mode after a toggle
type TorchResponse struct {
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}
