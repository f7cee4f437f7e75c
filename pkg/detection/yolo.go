package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/perception"
)

// YOLOEngine runs a YOLO-family ONNX model through the OpenCV DNN module.
type YOLOEngine struct {
	net       gocv.Net
	config    Config
	inputSize image.Point
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewYOLO loads the model described by cfg.
func NewYOLO(cfg Config) (*YOLOEngine, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLOEngine{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    log.Component("detection").With("model", cfg.ModelPath),
	}, nil
}

// Detect implements Engine.
func (e *YOLOEngine) Detect(ctx context.Context, frame perception.Frame) ([]perception.Detection, error) {
	if frame.Image == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stretch to the model input so normalized outputs map back onto the frame.
	resized := imaging.Resize(frame.Image, e.inputSize.X, e.inputSize.Y, imaging.Linear)
	img, err := gocv.ImageToMatRGB(resized)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0, e.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrModelLoad
	}

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	shape, err := ShapeOf(e.config.Layout, output.Size())
	if err != nil {
		return nil, err
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	dets, err := Decode(data, shape, e.config)
	if err != nil {
		return nil, err
	}
	if e.config.NMSThresh > 0 && len(dets) > 1 {
		dets = e.suppress(dets)
	}

	if len(dets) > 0 {
		e.logger.Debug("detections", "seq", frame.Seq, "count", len(dets))
	}
	return dets, nil
}

// suppress applies non-maximum suppression in model input pixel space.
func (e *YOLOEngine) suppress(dets []perception.Detection) []perception.Detection {
	boxes, scores := nmsInput(dets, e.inputSize)
	indices := gocv.NMSBoxes(boxes, scores, nmsScoreFloor(e.config.ConfidenceThresh), e.config.NMSThresh)
	kept := make([]perception.Detection, 0, len(indices))
	for _, idx := range indices {
		kept = append(kept, dets[idx])
	}
	return kept
}

// Close releases the network.
func (e *YOLOEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}
