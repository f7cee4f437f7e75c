package capture

import (
	"context"
	"sync"
)

// PermissionStatus is the camera access state.
type PermissionStatus uint8

const (
	PermissionUnknown PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionStatus) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "unknown"
}

// Authorizer answers whether the process may use the camera.
type Authorizer interface {
	// Status returns the current answer without prompting.
	Status() PermissionStatus

	// Request prompts when the status is unknown and returns the result.
	Request(ctx context.Context) (PermissionStatus, error)
}

// StaticAuthorizer answers the prompt from configuration. It starts unknown
// and settles on the first Request.
type StaticAuthorizer struct {
	Grant bool

	mu     sync.Mutex
	status PermissionStatus
}

// Status implements Authorizer.
func (a *StaticAuthorizer) Status() PermissionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Request implements Authorizer.
func (a *StaticAuthorizer) Request(ctx context.Context) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return PermissionUnknown, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == PermissionUnknown {
		if a.Grant {
			a.status = PermissionGranted
		} else {
			a.status = PermissionDenied
		}
	}
	return a.status, nil
}
