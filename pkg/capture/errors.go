package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned when no compatible capture device is available.
	ErrNoDevice = errors.New("capture: no compatible device")

	// ErrPermissionDenied is returned when camera access was refused.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrNotConfigured is returned by Start before Configure succeeded.
	ErrNotConfigured = errors.New("capture: session not configured")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("capture: orchestrator closed")

	// ErrBadMessage is returned for malformed bridge messages.
	ErrBadMessage = errors.New("capture: malformed bridge message")
)

// DeviceError records a failure of a specific device.
type DeviceError struct {
	ID  string
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
