package capture

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Dreta/Beacon/pkg/perception"
)

// WebcamConfig selects a local camera.
type WebcamConfig struct {
	Enabled bool
	Index   int
	Width   int
	Height  int
}

// WebcamProvider lists the configured local camera.
type WebcamProvider struct {
	Config WebcamConfig
}

// Devices implements Provider.
func (p WebcamProvider) Devices() []DeviceInfo {
	if !p.Config.Enabled {
		return nil
	}
	return []DeviceInfo{{
		ID:   "webcam:" + strconv.Itoa(p.Config.Index),
		Name: "Local camera",
		Type: TypeCamera,
	}}
}

// Open implements Provider.
func (p WebcamProvider) Open(info DeviceInfo) (Device, error) {
	vc, err := gocv.OpenVideoCapture(p.Config.Index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", p.Config.Index, err)
	}
	if p.Config.Width > 0 && p.Config.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(p.Config.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(p.Config.Height))
	}
	return &WebcamDevice{info: info, capture: vc}, nil
}

// WebcamDevice reads color frames from a local camera. It has no depth.
type WebcamDevice struct {
	info    DeviceInfo
	capture *gocv.VideoCapture

	mu     sync.Mutex
	closed bool
}

// Info implements Device.
func (w *WebcamDevice) Info() DeviceInfo { return w.info }

// Run implements Device.
func (w *WebcamDevice) Run(ctx context.Context, sink Sink) error {
	mat := gocv.NewMat()
	defer mat.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := w.capture.Read(&mat); !ok {
			return &DeviceError{ID: w.info.ID, Op: "read", Err: fmt.Errorf("camera returned no frame")}
		}
		if mat.Empty() {
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			continue
		}
		sink.Frame(perception.Frame{Image: img})
	}
}

// Close implements Device.
func (w *WebcamDevice) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.capture.Close()
}
