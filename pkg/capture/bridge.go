package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dreta/Beacon/internal/log"
)

// BridgeConfig describes a companion sensor bridge.
type BridgeConfig struct {
	URL              string        // ws:// or wss:// endpoint streaming color and depth
	HandshakeTimeout time.Duration // Dial timeout
	ReconnectDelay   time.Duration // Wait between reconnect attempts, 0 disables reconnect
	ReadLimit        int64         // Largest accepted message in bytes
}

// DefaultBridgeConfig returns bridge defaults.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		HandshakeTimeout: 10 * time.Second,
		ReconnectDelay:   2 * time.Second,
		ReadLimit:        16 << 20,
	}
}

// BridgeProvider lists the bridge as a depth-capable device when a URL is set.
type BridgeProvider struct {
	Config BridgeConfig
}

// Devices implements Provider.
func (p BridgeProvider) Devices() []DeviceInfo {
	if p.Config.URL == "" {
		return nil
	}
	return []DeviceInfo{{ID: p.Config.URL, Name: "Sensor bridge", Type: TypeDepth}}
}

// Open implements Provider.
func (p BridgeProvider) Open(info DeviceInfo) (Device, error) {
	return NewBridgeDevice(info, p.Config), nil
}

// BridgeDevice receives color frames and depth maps over a websocket.
type BridgeDevice struct {
	info   DeviceInfo
	config BridgeConfig
	dialer websocket.Dialer
	logger *slog.Logger
}

// NewBridgeDevice creates a bridge device. No connection is made until Run.
func NewBridgeDevice(info DeviceInfo, cfg BridgeConfig) *BridgeDevice {
	return &BridgeDevice{
		info:   info,
		config: cfg,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: log.Component("bridge").With("url", cfg.URL),
	}
}

// Info implements Device.
func (b *BridgeDevice) Info() DeviceInfo { return b.info }

// Run implements Device. It reconnects after a dropped connection until ctx
// is cancelled.
func (b *BridgeDevice) Run(ctx context.Context, sink Sink) error {
	for {
		err := b.session(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.config.ReconnectDelay <= 0 {
			return err
		}
		b.logger.Warn("bridge disconnected", "error", err, "retry_in", b.config.ReconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.config.ReconnectDelay):
		}
	}
}

func (b *BridgeDevice) session(ctx context.Context, sink Sink) error {
	conn, resp, err := b.dialer.DialContext(ctx, b.config.URL, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	defer conn.Close()

	if b.config.ReadLimit > 0 {
		conn.SetReadLimit(b.config.ReadLimit)
	}
	b.logger.Info("bridge connected")

	// Unblock ReadMessage when the session is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		frame, depth, err := decodeMessage(msg)
		if err != nil {
			if errors.Is(err, ErrBadMessage) {
				b.logger.Debug("dropping bridge message", "error", err)
				continue
			}
			return err
		}
		if frame != nil {
			sink.Frame(*frame)
		}
		if depth != nil {
			sink.Depth(*depth)
		}
	}
}

// Close implements Device.
func (b *BridgeDevice) Close() error { return nil }
