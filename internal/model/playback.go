package model

// CreatePlaybackRequest opens a bounded preview over an asset
type CreatePlaybackRequest struct {
	AssetPath string `json:"assetPath" validate:"required"`
}

// PlaybackBoundsRequest sets the preview range in seconds
type PlaybackBoundsRequest struct {
	StartSeconds float64 `json:"startSeconds" validate:"gte=0"`
	StopSeconds  float64 `json:"stopSeconds" validate:"gtefield=StartSeconds"`
}

// PlaybackPlayRequest starts playback, optionally bounded
type PlaybackPlayRequest struct {
	EnforceUpperBound bool `json:"enforceUpperBound"`
}

// PlaybackResponse reports preview state
type PlaybackResponse struct {
	SessionID       string  `json:"sessionId"`
	AssetPath       string  `json:"assetPath"`
	DurationSeconds float64 `json:"durationSeconds"`
	PositionSeconds float64 `json:"positionSeconds"`
	Playing         bool    `json:"playing"`
	StartSeconds    float64 `json:"startSeconds"`
	StopSeconds     float64 `json:"stopSeconds"`
}
