package haptics

import "errors"

var (
	// ErrNoPort is returned when a serial actuator is requested without a port.
	ErrNoPort = errors.New("haptics: serial port required")

	// ErrClosed is returned when pulsing a closed actuator.
	ErrClosed = errors.New("haptics: actuator closed")
)
