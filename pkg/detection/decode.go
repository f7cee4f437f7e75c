package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/Dreta/Beacon/pkg/perception"
)

// Decode turns a raw output tensor into detections. Candidates below the
// confidence threshold are dropped; each survivor takes its best-scoring
// class. Boxes are converted from center form to normalized min-corner form.
func Decode(data []float32, shape Shape, cfg Config) ([]perception.Detection, error) {
	header := 4
	if cfg.Layout == LayoutYOLOv5 {
		header = 5
	}
	classes := shape.Attributes - header
	if classes <= 0 || shape.Anchors <= 0 {
		return nil, fmt.Errorf("%w: %d attributes", ErrBadOutput, shape.Attributes)
	}
	if len(data) < shape.Attributes*shape.Anchors {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrBadOutput, len(data), shape.Attributes, shape.Anchors)
	}

	at := func(anchor, attr int) float32 {
		if cfg.Layout == LayoutYOLOv5 {
			return data[anchor*shape.Attributes+attr]
		}
		return data[attr*shape.Anchors+anchor]
	}

	sx, sy := float32(1), float32(1)
	if !cfg.NormalizedOutput {
		sx = 1 / float32(cfg.InputWidth)
		sy = 1 / float32(cfg.InputHeight)
	}

	var out []perception.Detection
	for i := 0; i < shape.Anchors; i++ {
		best := float32(-1)
		classID := 0
		for c := 0; c < classes; c++ {
			if s := at(i, header+c); s > best {
				best = s
				classID = c
			}
		}

		conf := best
		if cfg.Layout == LayoutYOLOv5 {
			conf = at(i, 4) * best
		}
		if !(conf >= cfg.ConfidenceThresh) {
			continue
		}

		box := perception.RectFromCenter(
			float64(at(i, 0)*sx),
			float64(at(i, 1)*sy),
			float64(at(i, 2)*sx),
			float64(at(i, 3)*sy),
		).Clamp()

		out = append(out, perception.Detection{
			Label:      Label(cfg.Labels, classID),
			Box:        box,
			Confidence: float64(conf),
		})
	}
	return out, nil
}

// nmsInput converts detections to the pixel boxes and scores taken by
// non-maximum suppression, in a size.X x size.Y input space.
func nmsInput(dets []perception.Detection, size image.Point) ([]image.Rectangle, []float32) {
	boxes := make([]image.Rectangle, len(dets))
	scores := make([]float32, len(dets))
	w, h := float64(size.X), float64(size.Y)
	for i, d := range dets {
		boxes[i] = image.Rect(
			int(d.Box.X*w), int(d.Box.Y*h),
			int((d.Box.X+d.Box.W)*w), int((d.Box.Y+d.Box.H)*h),
		)
		scores[i] = float32(d.Confidence)
	}
	return boxes, scores
}

// nmsScoreFloor returns the largest float32 below thresh. NMSBoxes keeps only
// scores strictly above its threshold, while Decode keeps scores equal to it.
func nmsScoreFloor(thresh float32) float32 {
	return math.Nextafter32(thresh, float32(math.Inf(-1)))
}
