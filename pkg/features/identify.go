package features

import (
	"github.com/google/uuid"

	"github.com/Dreta/Beacon/pkg/depth"
	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/perception"
	"github.com/Dreta/Beacon/pkg/selection"
)

// identify detects objects, attaches distances and publishes the object
// nearest the frame center as the selection.
type identify struct {
	id     string
	state  *perception.State
	pool   *detection.Pool
	engine detection.Engine
}

func newIdentify(deps Deps) (Feature, error) {
	engine, err := deps.openEngine(deps.ObjectModel)
	if err != nil {
		return nil, err
	}
	return &identify{
		id:     uuid.NewString(),
		state:  deps.State,
		pool:   deps.Pool,
		engine: engine,
	}, nil
}

func (f *identify) Kind() Kind { return KindIdentify }
func (f *identify) ID() string { return f.id }

func (f *identify) Action(in Inputs) {
	if f.state == nil || f.pool == nil {
		return
	}
	// The token is taken now so results landing after a session stop are
	// rejected.
	tok := f.state.Token(f.id)
	sample := in.Depth

	f.pool.Submit(in.Ctx, f.engine, in.Frame, func(dets []perception.Detection) {
		annotated := depth.Annotate(dets, sample)
		if sel, ok := selection.Select(annotated); ok {
			f.state.PublishDetections(tok, annotated, &sel)
			return
		}
		f.state.PublishDetections(tok, annotated, nil)
	})
}

func (f *identify) OnRemove(state *perception.State) {
	if state != nil {
		state.Release(f.id)
	}
	f.engine.Close()
}
