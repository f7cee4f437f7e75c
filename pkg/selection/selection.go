// Package selection picks the detection most relevant to the user.
package selection

import (
	"sort"

	"github.com/Dreta/Beacon/pkg/perception"
)

// Select returns the detection whose box center is closest to the frame
// center. Ties keep input order. An empty input has no selection.
func Select(dets []perception.Detection) (perception.Detection, bool) {
	if len(dets) == 0 {
		return perception.Detection{}, false
	}

	best := 0
	bestDist := dets[0].Box.Center().DistanceSquared(perception.FrameCenter)
	for i := 1; i < len(dets); i++ {
		d := dets[i].Box.Center().DistanceSquared(perception.FrameCenter)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return dets[best], true
}

// Rank returns the detections ordered by distance from the frame center,
// nearest first. The sort is stable so equal distances keep input order.
func Rank(dets []perception.Detection) []perception.Detection {
	out := make([]perception.Detection, len(dets))
	copy(out, dets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Box.Center().DistanceSquared(perception.FrameCenter) <
			out[j].Box.Center().DistanceSquared(perception.FrameCenter)
	})
	return out
}
