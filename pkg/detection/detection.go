// Package detection runs object detection models over captured frames.
package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dreta/Beacon/pkg/perception"
)

// DefaultConfidence is the lowest confidence a detection may have.
// Candidates scoring exactly this value are kept.
const DefaultConfidence float32 = 0.4

// Engine is the interface for detection backends.
type Engine interface {
	// Detect runs one inference pass over the frame.
	Detect(ctx context.Context, frame perception.Frame) ([]perception.Detection, error)

	// Close releases resources
	Close() error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, frame perception.Frame) ([]perception.Detection, error)

// Detect calls f.
func (f EngineFunc) Detect(ctx context.Context, frame perception.Frame) ([]perception.Detection, error) {
	return f(ctx, frame)
}

// Close is a no-op.
func (f EngineFunc) Close() error { return nil }

// Layout is the shape of a model's raw output tensor.
type Layout uint8

const (
	// LayoutYOLOv8 is [1, 4+classes, anchors]; confidence is the best class score.
	LayoutYOLOv8 Layout = iota
	// LayoutYOLOv5 is [1, anchors, 5+classes]; confidence is objectness times
	// the best class score.
	LayoutYOLOv5
)

func (l Layout) String() string {
	if l == LayoutYOLOv5 {
		return "yolov5"
	}
	return "yolov8"
}

// ParseLayout parses "yolov8" or "yolov5".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yolov8":
		return LayoutYOLOv8, nil
	case "yolov5":
		return LayoutYOLOv5, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

// Config holds detector configuration
type Config struct {
	ModelPath        string   // Path to ONNX model
	Layout           Layout   // Output tensor layout
	ConfidenceThresh float32  // Minimum confidence, inclusive
	NMSThresh        float32  // IoU threshold for suppression, 0 disables
	InputWidth       int      // Model input width
	InputHeight      int      // Model input height
	NormalizedOutput bool     // Box coordinates are already in [0,1]
	Labels           []string // Class names indexed by class ID
}

// DefaultConfig returns defaults for the general object model.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		Layout:           LayoutYOLOv8,
		ConfidenceThresh: DefaultConfidence,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		Labels:           COCOLabels,
	}
}

// TrafficLightConfig returns defaults for the traffic light state model.
func TrafficLightConfig() Config {
	cfg := DefaultConfig()
	cfg.ModelPath = "models/traffic_light.onnx"
	cfg.Labels = TrafficLightLabels
	return cfg
}

// Shape describes a raw output tensor after the batch axis is dropped.
type Shape struct {
	Attributes int // Values per candidate
	Anchors    int // Number of candidates
}

// ShapeOf derives the candidate shape from output dimensions for a layout.
func ShapeOf(layout Layout, dims []int) (Shape, error) {
	if len(dims) == 3 {
		dims = dims[1:]
	}
	if len(dims) != 2 {
		return Shape{}, fmt.Errorf("%w: dims %v", ErrBadOutput, dims)
	}
	if layout == LayoutYOLOv5 {
		return Shape{Attributes: dims[1], Anchors: dims[0]}, nil
	}
	return Shape{Attributes: dims[0], Anchors: dims[1]}, nil
}
