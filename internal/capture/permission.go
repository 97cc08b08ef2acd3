package capture

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DeviceKind selects the permission domain for a prompt.
type DeviceKind string

const (
	DeviceCamera     DeviceKind = "camera"
	DeviceMicrophone DeviceKind = "microphone"
)

// Prompter resolves an asynchronous access prompt for a device kind.
type Prompter interface {
	RequestAccess(ctx context.Context, kind DeviceKind) (bool, error)
}

// AllowAll grants every request without interaction. Server deployments
// have no interactive consent surface; the gate still serializes and
// caches so the contract holds for prompters that do.
type AllowAll struct{}

func (AllowAll) RequestAccess(ctx context.Context, kind DeviceKind) (bool, error) {
	return true, nil
}

// PermissionGate wraps an asynchronous permission prompt behind a
// synchronous check. At most one prompt is in flight per device kind;
// concurrent callers share its outcome. Determined results are cached and
// returned without prompting again.
type PermissionGate struct {
	prompter Prompter
	group    singleflight.Group

	mu      sync.Mutex
	granted map[DeviceKind]bool
}

func NewPermissionGate(prompter Prompter) *PermissionGate {
	return &PermissionGate{
		prompter: prompter,
		granted:  make(map[DeviceKind]bool),
	}
}

// CheckAndAcquire blocks until permission for the device kind is
// determined and reports whether it was granted.
func (g *PermissionGate) CheckAndAcquire(ctx context.Context, kind DeviceKind) (bool, error) {
	g.mu.Lock()
	if granted, ok := g.granted[kind]; ok {
		g.mu.Unlock()
		return granted, nil
	}
	g.mu.Unlock()

	v, err, _ := g.group.Do(string(kind), func() (interface{}, error) {
		granted, err := g.prompter.RequestAccess(ctx, kind)
		if err != nil {
			return false, err
		}
		g.mu.Lock()
		g.granted[kind] = granted
		g.mu.Unlock()
		return granted, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Determined reports whether the kind has a cached outcome.
func (g *PermissionGate) Determined(kind DeviceKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.granted[kind]
	return ok
}
