// Package capture owns the camera and depth session: permission, device
// selection, and the start/stop lifecycle. Color frames and depth samples
// leave on two independent bounded channels.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Dreta/Beacon/internal/clock"
	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/perception"
)

// Config holds orchestrator configuration
type Config struct {
	FrameBuffer int // Queued frames before the oldest is dropped
	DepthBuffer int // Queued depth samples before the oldest is dropped
}

// DefaultConfig returns defaults sized so consumers always see a recent sample.
func DefaultConfig() Config {
	return Config{
		FrameBuffer: 2,
		DepthBuffer: 2,
	}
}

// Orchestrator manages one capture session.
type Orchestrator struct {
	auth     Authorizer
	provider Provider
	clock    clock.Clock
	logger   *slog.Logger

	frames chan perception.Frame
	depth  chan perception.DepthSample
	seq    atomic.Uint64

	droppedFrames atomic.Uint64
	droppedDepth  atomic.Uint64

	mu       sync.Mutex
	device   Device
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
	reported map[error]bool
}

// New creates an orchestrator.
func New(cfg Config, auth Authorizer, provider Provider) *Orchestrator {
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = 1
	}
	if cfg.DepthBuffer <= 0 {
		cfg.DepthBuffer = 1
	}
	return &Orchestrator{
		auth:     auth,
		provider: provider,
		clock:    clock.Real{},
		logger:   log.Component("capture"),
		frames:   make(chan perception.Frame, cfg.FrameBuffer),
		depth:    make(chan perception.DepthSample, cfg.DepthBuffer),
		reported: make(map[error]bool),
	}
}

// SetClock replaces the clock used to stamp samples without a timestamp.
func (o *Orchestrator) SetClock(c clock.Clock) {
	o.clock = c
}

// Frames returns the color frame stream. It is closed by Close.
func (o *Orchestrator) Frames() <-chan perception.Frame { return o.frames }

// Depth returns the depth sample stream. It is closed by Close.
func (o *Orchestrator) Depth() <-chan perception.DepthSample { return o.depth }

// Permission returns the current permission status.
func (o *Orchestrator) Permission() PermissionStatus {
	return o.auth.Status()
}

// RequestStart asks for permission if needed, configures a device and starts
// streaming. It returns false when access is denied or no device exists;
// each of those is reported once.
func (o *Orchestrator) RequestStart(ctx context.Context) bool {
	status := o.auth.Status()
	if status == PermissionUnknown {
		var err error
		status, err = o.auth.Request(ctx)
		if err != nil {
			o.logger.Warn("permission request failed", "error", err)
			return false
		}
	}
	if status != PermissionGranted {
		o.reportOnce(ErrPermissionDenied)
		return false
	}

	if err := o.Configure(); err != nil {
		o.reportOnce(err)
		return false
	}
	if err := o.Start(); err != nil {
		o.logger.Warn("start failed", "error", err)
		return false
	}
	return true
}

// Configure selects and opens the best available device. Configuring an
// already configured session is a no-op.
func (o *Orchestrator) Configure() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.device != nil {
		return nil
	}

	info, ok := bestDevice(o.provider.Devices())
	if !ok {
		return ErrNoDevice
	}
	dev, err := o.provider.Open(info)
	if err != nil {
		return &DeviceError{ID: info.ID, Op: "open", Err: err}
	}

	o.device = dev
	o.logger.Info("device configured", "device", info.ID, "type", info.Type.String())
	return nil
}

// Device returns the configured device description.
func (o *Orchestrator) Device() (DeviceInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.device == nil {
		return DeviceInfo{}, false
	}
	return o.device.Info(), true
}

// Start begins streaming. Starting a running session is a no-op.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.device == nil {
		return ErrNotConfigured
	}
	if o.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done

	dev := o.device
	go func() {
		defer close(done)
		err := dev.Run(ctx, sink{o})
		if err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Warn("device stopped", "error", &DeviceError{ID: dev.Info().ID, Op: "run", Err: err})
		}
	}()

	o.logger.Info("capture started")
	return nil
}

// Stop halts streaming and keeps the configuration. It is safe to call in
// any state.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *Orchestrator) stopLocked() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	<-o.done
	o.cancel = nil
	o.done = nil
	o.logger.Info("capture stopped")
}

// Running reports whether the device is streaming.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

// Close stops streaming, releases the device and closes both streams.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.stopLocked()
	o.closed = true

	var err error
	if o.device != nil {
		err = o.device.Close()
		o.device = nil
	}
	close(o.frames)
	close(o.depth)
	return err
}

// Dropped returns how many frames and depth samples were discarded because
// the consumer fell behind.
func (o *Orchestrator) Dropped() (frames, depth uint64) {
	return o.droppedFrames.Load(), o.droppedDepth.Load()
}

func (o *Orchestrator) reportOnce(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := err
	var de *DeviceError
	if errors.As(err, &de) {
		key = de.Err
	}
	if o.reported[key] {
		return
	}
	o.reported[key] = true
	o.logger.Warn("capture unavailable", "error", err)
}

// sink is what running devices write into.
type sink struct{ o *Orchestrator }

func (s sink) Frame(f perception.Frame) {
	f.Seq = s.o.seq.Add(1)
	if f.CapturedAt.IsZero() {
		f.CapturedAt = s.o.clock.Now()
	}
	if pushLatest(s.o.frames, f) {
		s.o.droppedFrames.Add(1)
	}
}

func (s sink) Depth(d perception.DepthSample) {
	if d.CapturedAt.IsZero() {
		d.CapturedAt = s.o.clock.Now()
	}
	if pushLatest(s.o.depth, d) {
		s.o.droppedDepth.Add(1)
	}
}

// pushLatest enqueues v, discarding the oldest queued value while the channel
// is full. It reports whether anything was discarded.
func pushLatest[T any](ch chan T, v T) bool {
	dropped := false
	for {
		select {
		case ch <- v:
			return dropped
		default:
		}
		select {
		case <-ch:
			dropped = true
		default:
		}
	}
}
