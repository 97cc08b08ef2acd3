package capture

import "errors"

// Capture error taxonomy. Configuration failures surface once via Prepare
// and leave the session not running; callers retry Prepare from scratch.
var (
	ErrPermissionDenied = errors.New("device permission denied")
	ErrNoCamera         = errors.New("no camera available")
	ErrNoMicrophone     = errors.New("no microphone available")
	ErrDeviceConfig     = errors.New("device configuration failed")
	ErrInvalidOperation = errors.New("invalid operation for session state")
	ErrSessionTornDown  = errors.New("session has been torn down")
)
