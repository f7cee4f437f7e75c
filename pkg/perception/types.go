// Package perception holds the data model shared by every stage of the
// pipeline: captured frames, depth samples, detections and the shared state
// read by features and the UI.
package perception

import (
	"image"
	"math"
	"time"
)

// Point is a position in normalized image space, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FrameCenter is the center of every frame in normalized space.
var FrameCenter = Point{X: 0.5, Y: 0.5}

// DistanceSquared returns the squared Euclidean distance to q.
func (p Point) DistanceSquared(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Rect is a normalized bounding box in min-x/min-y form.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectFromCenter converts center-x/center-y/width/height to min-x/min-y form.
func RectFromCenter(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// Center returns the center point of the box.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Area returns the area of the box.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Clamp restricts the box to the unit square.
func (r Rect) Clamp() Rect {
	x1 := clamp01(r.X)
	y1 := clamp01(r.Y)
	x2 := clamp01(r.X + r.W)
	y2 := clamp01(r.Y + r.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Frame is one decoded color image from the capture stream.
// Frames are immutable once emitted.
type Frame struct {
	Seq        uint64
	Image      image.Image
	CapturedAt time.Time
}

// Bounds returns the pixel size of the frame, or zero for an empty frame.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// DepthEncoding describes what the values of a DepthSample mean.
type DepthEncoding uint8

const (
	// EncodingDepth stores distance in meters.
	EncodingDepth DepthEncoding = iota
	// EncodingDisparity stores inverse depth (1/m).
	EncodingDisparity
)

func (e DepthEncoding) String() string {
	if e == EncodingDisparity {
		return "disparity"
	}
	return "depth"
}

// Origin is the row order of a depth grid.
type Origin uint8

const (
	// OriginTopLeft means row 0 is the top of the image.
	OriginTopLeft Origin = iota
	// OriginBottomLeft means row 0 is the bottom of the image.
	OriginBottomLeft
)

// DepthSample is one depth or disparity map aligned to the camera's field of
// view. It is not synchronized with any particular Frame.
type DepthSample struct {
	Width      int
	Height     int
	Values     []float32 // row-major, Width*Height
	Encoding   DepthEncoding
	Origin     Origin
	CapturedAt time.Time
}

// Valid reports whether the grid dimensions match the value buffer.
func (d *DepthSample) Valid() bool {
	return d != nil && d.Width > 0 && d.Height > 0 && len(d.Values) == d.Width*d.Height
}

// Raw returns the stored value at pixel (x, y) in buffer coordinates.
func (d *DepthSample) Raw(x, y int) (float32, bool) {
	if !d.Valid() || x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return 0, false
	}
	return d.Values[y*d.Width+x], true
}

// Meters converts a raw value to a distance in meters.
// Non-positive and non-finite values have no distance.
func (d *DepthSample) Meters(raw float32) (float64, bool) {
	v := float64(raw)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	if d.Encoding == EncodingDisparity {
		m := 1.0 / v
		if math.IsInf(m, 0) {
			return 0, false
		}
		return m, true
	}
	return v, true
}

// Detection is one labeled, scored, localized object candidate.
type Detection struct {
	Label      string   `json:"label"`
	Box        Rect     `json:"box"`
	Confidence float64  `json:"confidence"`
	Distance   *float64 `json:"distance,omitempty"`
}

// WithDistance returns a copy of d with the distance attached.
// When ok is false the copy carries no distance.
func (d Detection) WithDistance(meters float64, ok bool) Detection {
	if !ok {
		d.Distance = nil
		return d
	}
	m := meters
	d.Distance = &m
	return d
}

// Meters returns the attached distance.
func (d Detection) Meters() (float64, bool) {
	if d.Distance == nil {
		return 0, false
	}
	return *d.Distance, true
}

func (d Detection) clone() Detection {
	if d.Distance != nil {
		m := *d.Distance
		d.Distance = &m
	}
	return d
}
