package capture

import (
	"context"

	"github.com/Dreta/Beacon/pkg/perception"
)

// DeviceType ranks devices by capability.
type DeviceType uint8

const (
	// TypeCamera produces color frames only.
	TypeCamera DeviceType = iota
	// TypeDepth produces color frames and depth samples.
	TypeDepth
)

func (t DeviceType) String() string {
	if t == TypeDepth {
		return "depth"
	}
	return "camera"
}

// DeviceInfo describes an available device.
type DeviceInfo struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type DeviceType `json:"type"`
}

// Sink receives samples from a running device.
type Sink interface {
	Frame(perception.Frame)
	Depth(perception.DepthSample)
}

// Device is an opened capture device.
type Device interface {
	Info() DeviceInfo

	// Run streams samples into sink until ctx is cancelled or the device fails.
	Run(ctx context.Context, sink Sink) error

	// Close releases the device. Run must have returned.
	Close() error
}

// Provider lists and opens devices.
type Provider interface {
	Devices() []DeviceInfo
	Open(info DeviceInfo) (Device, error)
}

// Providers combines several providers. Devices are listed in order.
type Providers []Provider

// Devices implements Provider.
func (ps Providers) Devices() []DeviceInfo {
	var out []DeviceInfo
	for _, p := range ps {
		out = append(out, p.Devices()...)
	}
	return out
}

// Open implements Provider by asking the provider that listed info.
func (ps Providers) Open(info DeviceInfo) (Device, error) {
	for _, p := range ps {
		for _, d := range p.Devices() {
			if d.ID == info.ID {
				return p.Open(info)
			}
		}
	}
	return nil, &DeviceError{ID: info.ID, Op: "open", Err: ErrNoDevice}
}

// bestDevice prefers a depth device and falls back to a plain camera.
func bestDevice(devices []DeviceInfo) (DeviceInfo, bool) {
	var fallback *DeviceInfo
	for i := range devices {
		switch devices[i].Type {
		case TypeDepth:
			return devices[i], true
		case TypeCamera:
			if fallback == nil {
				fallback = &devices[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return DeviceInfo{}, false
}
