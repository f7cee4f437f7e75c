// Package hub fans dashboard messages out to websocket clients. Beacon runs
// one hub per stream: perception state, camera previews and haptic pulses.
package hub

import "github.com/gofiber/websocket/v2"

// Stream names one dashboard websocket stream.
type Stream string

const (
	// StreamState carries JSON state views. New clients get the latest one.
	StreamState Stream = "state"
	// StreamCamera carries JPEG previews.
	StreamCamera Stream = "camera"
	// StreamHaptics carries JSON haptic events.
	StreamHaptics Stream = "haptics"
)

// Retained reports whether a client joining the stream first receives the
// most recent message.
func (s Stream) Retained() bool { return s == StreamState }

// Message is one payload queued for the clients of a stream.
type Message struct {
	Binary bool
	Data   []byte
}

func (m Message) frameType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
