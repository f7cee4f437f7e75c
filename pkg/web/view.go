package web

import (
	"math"

	"github.com/Dreta/Beacon/pkg/depth"
	"github.com/Dreta/Beacon/pkg/perception"
)

// SelectedInfo is the info overlay for the selected object.
type SelectedInfo struct {
	Label      string   `json:"label"`
	Confidence int      `json:"confidence_percent"`
	Distance   *float64 `json:"distance,omitempty"`
	Category   string   `json:"category"`
}

// StateView is the dashboard projection of the perception state.
type StateView struct {
	perception.Snapshot
	Running bool          `json:"running"`
	Info    *SelectedInfo `json:"info,omitempty"`
}

// NewStateView builds the dashboard view of a snapshot.
func NewStateView(snap perception.Snapshot, running bool) StateView {
	v := StateView{Snapshot: snap, Running: running}
	if snap.Selected == nil {
		return v
	}

	info := &SelectedInfo{
		Label:      snap.Selected.Label,
		Confidence: int(math.Round(snap.Selected.Confidence * 100)),
		Category:   "unknown",
	}
	if m, ok := snap.Selected.Meters(); ok {
		info.Distance = &m
		info.Category = depth.Category(m)
	}
	v.Info = info
	return v
}
