package haptics

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// SerialConfig describes the vibration motor controller link.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// Pulse command bytes understood by the motor controller firmware.
const (
	cmdLow    = 'L'
	cmdMedium = 'M'
	cmdHigh   = 'H'
)

// SerialActuator sends one command per pulse to a microcontroller driving a
// vibration motor.
type SerialActuator struct {
	mu     sync.Mutex
	port   io.WriteCloser
	closed bool
}

// OpenSerial opens the controller's serial port.
func OpenSerial(cfg SerialConfig) (*SerialActuator, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open haptic port %s: %w", cfg.Port, err)
	}
	return NewSerialActuator(port), nil
}

// NewSerialActuator wraps an already open port.
func NewSerialActuator(port io.WriteCloser) *SerialActuator {
	return &SerialActuator{port: port}
}

// Pulse implements Actuator.
func (a *SerialActuator) Pulse(i Intensity) error {
	var cmd byte
	switch i {
	case IntensityLow:
		cmd = cmdLow
	case IntensityMedium:
		cmd = cmdMedium
	case IntensityHigh:
		cmd = cmdHigh
	default:
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if _, err := a.port.Write([]byte{cmd, '\n'}); err != nil {
		return fmt.Errorf("write pulse: %w", err)
	}
	return nil
}

// Close releases the port.
func (a *SerialActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.port.Close()
}
