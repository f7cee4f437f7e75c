package capture

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreta/Beacon/pkg/perception"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []perception.Frame
	depth  []perception.DepthSample
	got    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 16)}
}

func (s *recordingSink) Frame(f perception.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	s.got <- struct{}{}
}

func (s *recordingSink) Depth(d perception.DepthSample) {
	s.mu.Lock()
	s.depth = append(s.depth, d)
	s.mu.Unlock()
	s.got <- struct{}{}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestWire_Depth(t *testing.T) {
	in := perception.DepthSample{
		Width:      3,
		Height:     2,
		Values:     []float32{0.5, 1, 1.5, 2, 2.5, 0},
		Encoding:   perception.EncodingDisparity,
		Origin:     perception.OriginBottomLeft,
		CapturedAt: time.Unix(0, 1234567890),
	}
	msg, err := EncodeDepth(in)
	require.NoError(t, err)

	frame, out, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Nil(t, frame)
	require.NotNil(t, out)
	assert.Equal(t, in.Values, out.Values)
	assert.Equal(t, in.Encoding, out.Encoding)
	assert.Equal(t, in.Origin, out.Origin)
	assert.True(t, in.CapturedAt.Equal(out.CapturedAt))
}

func TestWire_Color(t *testing.T) {
	msg, err := EncodeColor(testImage(), time.Unix(42, 0), 90)
	require.NoError(t, err)

	frame, depth, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Nil(t, depth)
	require.NotNil(t, frame)
	assert.Equal(t, image.Rect(0, 0, 8, 6), frame.Bounds())
	assert.True(t, frame.CapturedAt.Equal(time.Unix(42, 0)))
}

func TestWire_Malformed(t *testing.T) {
	depth, err := EncodeDepth(perception.DepthSample{Width: 2, Height: 2, Values: make([]float32, 4)})
	require.NoError(t, err)

	badEncoding := append([]byte(nil), depth...)
	badEncoding[17] = 7

	tests := []struct {
		name string
		msg  []byte
	}{
		{"empty", nil},
		{"unknown tag", []byte("X12345678")},
		{"short color", []byte{'C', 1, 2}},
		{"corrupt jpeg", append([]byte{'C', 0, 0, 0, 0, 0, 0, 0, 0}, "not a jpeg"...)},
		{"short depth", []byte{'D', 0, 0}},
		{"truncated grid", depth[:len(depth)-1]},
		{"bad encoding", badEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeMessage(tt.msg)
			assert.ErrorIs(t, err, ErrBadMessage)
		})
	}
}

func bridgeServer(t *testing.T, msgs ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.BinaryMessage, m); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestBridgeDevice_Run(t *testing.T) {
	defer leaktest.Check(t)()

	colorMsg, err := EncodeColor(testImage(), time.Unix(1, 0), 90)
	require.NoError(t, err)
	depth, err := EncodeDepth(perception.DepthSample{Width: 1, Height: 1, Values: []float32{2}, CapturedAt: time.Unix(2, 0)})
	require.NoError(t, err)

	srv := bridgeServer(t, []byte("Zjunk"), colorMsg, depth)
	defer srv.Close()

	cfg := DefaultBridgeConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	p := BridgeProvider{Config: cfg}
	require.Len(t, p.Devices(), 1)
	dev, err := p.Open(p.Devices()[0])
	require.NoError(t, err)

	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dev.Run(ctx, sink) }()

	for i := 0; i < 2; i++ {
		select {
		case <-sink.got:
		case <-time.After(2 * time.Second):
			t.Fatal("bridge sample not delivered")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, dev.Close())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.frames, 1)
	require.Len(t, sink.depth, 1)
	assert.Equal(t, []float32{2}, sink.depth[0].Values)
}

func TestBridgeDevice_DialFailureWithoutReconnect(t *testing.T) {
	cfg := DefaultBridgeConfig()
	cfg.URL = "ws://127.0.0.1:1/bridge"
	cfg.ReconnectDelay = 0
	cfg.HandshakeTimeout = time.Second

	dev := NewBridgeDevice(DeviceInfo{ID: cfg.URL, Type: TypeDepth}, cfg)
	err := dev.Run(context.Background(), newRecordingSink())
	assert.Error(t, err)
}

func TestBridgeProvider_NoURL(t *testing.T) {
	assert.Empty(t, BridgeProvider{}.Devices())
}
