// Package features composes independent per-frame perception behaviors.
// Each feature variant is described by a catalog entry carrying its display
// metadata, dispatch priority, conflicts and the state fields it owns.
package features

import (
	"context"
	"time"

	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/perception"
)

// Kind identifies a feature variant.
type Kind string

const (
	KindIdentify         Kind = "identify"
	KindTrafficLight     Kind = "traffic_light"
	KindSelectedHaptics  Kind = "selected_haptics"
	KindProximityHaptics Kind = "proximity_haptics"
)

// Feature is one enabled behavior instance.
type Feature interface {
	Kind() Kind

	// ID is unique per instance; it is the owner name used for state fields.
	ID() string

	// Action runs once per dispatched frame. It must not block on inference.
	Action(in Inputs)

	// OnRemove clears whatever the feature published.
	OnRemove(state *perception.State)
}

// Inputs is what a feature sees for one frame.
type Inputs struct {
	Ctx   context.Context
	Frame perception.Frame
	Depth *perception.DepthSample // latest sample, nil before the first arrives
	Now   time.Time
}

// PulseSink accepts haptic events.
type PulseSink interface {
	Emit(haptics.Event) bool
}

// Deps are the collaborators a feature may be built with.
type Deps struct {
	State   *perception.State
	Pool    *detection.Pool
	Pulses  PulseSink
	Haptics haptics.Config

	DepthWindow       int
	ObjectModel       detection.Config
	TrafficLightModel detection.Config

	// OpenEngine loads a detection model. Defaults to a YOLO engine.
	OpenEngine func(detection.Config) (detection.Engine, error)
}

func (d Deps) openEngine(cfg detection.Config) (detection.Engine, error) {
	if d.OpenEngine != nil {
		return d.OpenEngine(cfg)
	}
	e, err := detection.NewYOLO(cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Factory constructs a feature instance.
type Factory func(Deps) (Feature, error)

// Descriptor is the static description of a feature variant.
type Descriptor struct {
	Kind      Kind               `json:"kind"`
	Name      string             `json:"name"`
	Icon      string             `json:"icon"`
	Priority  int                `json:"priority"`
	Conflicts []Kind             `json:"conflicts,omitempty"`
	Fields    []perception.Field `json:"-"`
	New       Factory            `json:"-"`
}

// ConflictsWith reports whether d declares other as a conflict.
func (d Descriptor) ConflictsWith(other Kind) bool {
	for _, k := range d.Conflicts {
		if k == other {
			return true
		}
	}
	return false
}
