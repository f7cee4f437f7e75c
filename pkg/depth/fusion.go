// Package depth fuses detections with the latest depth sample to estimate
// distances in meters.
package depth

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Dreta/Beacon/pkg/perception"
)

// DefaultWindow is the side length in pixels of the square sampled for
// region queries.
const DefaultWindow = 100

// pixel projects a normalized image point onto the sample grid, flipping rows
// when the sensor stores the bottom row first.
func pixel(p perception.Point, sample *perception.DepthSample) (x, y int) {
	fy := p.Y
	if sample.Origin == perception.OriginBottomLeft {
		fy = 1 - p.Y
	}
	return int(math.Floor(p.X * float64(sample.Width))), int(math.Floor(fy * float64(sample.Height)))
}

func inBounds(x, y int, sample *perception.DepthSample) bool {
	return x >= 0 && y >= 0 && x < sample.Width && y < sample.Height
}

// DistanceAt returns the distance at a normalized point.
// Out-of-bounds points and unusable values have no distance.
func DistanceAt(p perception.Point, sample *perception.DepthSample) (float64, bool) {
	if !sample.Valid() {
		return 0, false
	}
	x, y := pixel(p, sample)
	raw, ok := sample.Raw(x, y)
	if !ok {
		return 0, false
	}
	return sample.Meters(raw)
}

// MinDistanceInWindow returns the closest distance within a window x window
// pixel square centered on p, clipped to the grid. The minimum is used so the
// nearest hazard in the region wins.
func MinDistanceInWindow(p perception.Point, sample *perception.DepthSample, window int) (float64, bool) {
	if !sample.Valid() {
		return 0, false
	}
	if window <= 0 {
		window = DefaultWindow
	}

	cx, cy := pixel(p, sample)
	if !inBounds(cx, cy, sample) {
		return 0, false
	}

	half := window / 2
	x0, x1 := max(0, cx-half), min(sample.Width, cx-half+window)
	y0, y1 := max(0, cy-half), min(sample.Height, cy-half+window)

	values := make([]float64, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		row := sample.Values[y*sample.Width : (y+1)*sample.Width]
		for x := x0; x < x1; x++ {
			if m, ok := sample.Meters(row[x]); ok {
				values = append(values, m)
			}
		}
	}

	if len(values) == 0 {
		return 0, false
	}
	return floats.Min(values), true
}

// Annotate returns copies of dets with the distance at each box center
// attached. Without a usable sample the detections are returned unchanged.
func Annotate(dets []perception.Detection, sample *perception.DepthSample) []perception.Detection {
	out := make([]perception.Detection, len(dets))
	if !sample.Valid() {
		copy(out, dets)
		return out
	}
	for i, d := range dets {
		m, ok := DistanceAt(d.Box.Center(), sample)
		out[i] = d.WithDistance(m, ok)
	}
	return out
}
