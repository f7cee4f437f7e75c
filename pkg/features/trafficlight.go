package features

import (
	"github.com/google/uuid"

	"github.com/Dreta/Beacon/pkg/depth"
	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/perception"
	"github.com/Dreta/Beacon/pkg/selection"
)

// trafficLight runs the traffic light state model and publishes the light
// nearest the frame center.
type trafficLight struct {
	id     string
	state  *perception.State
	pool   *detection.Pool
	engine detection.Engine
}

func newTrafficLight(deps Deps) (Feature, error) {
	engine, err := deps.openEngine(deps.TrafficLightModel)
	if err != nil {
		return nil, err
	}
	return &trafficLight{
		id:     uuid.NewString(),
		state:  deps.State,
		pool:   deps.Pool,
		engine: engine,
	}, nil
}

func (f *trafficLight) Kind() Kind { return KindTrafficLight }
func (f *trafficLight) ID() string { return f.id }

func (f *trafficLight) Action(in Inputs) {
	if f.state == nil || f.pool == nil {
		return
	}
	tok := f.state.Token(f.id)
	sample := in.Depth

	f.pool.Submit(in.Ctx, f.engine, in.Frame, func(dets []perception.Detection) {
		light, ok := selection.Select(depth.Annotate(dets, sample))
		if !ok {
			f.state.PublishTrafficLight(tok, nil)
			return
		}
		f.state.PublishTrafficLight(tok, &light)
	})
}

func (f *trafficLight) OnRemove(state *perception.State) {
	if state != nil {
		state.Release(f.id)
	}
	f.engine.Close()
}
