package features

import (
	"math"

	"github.com/google/uuid"

	"github.com/Dreta/Beacon/pkg/depth"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/perception"
)

// selectedHaptics pulses for the distance of the selected object.
type selectedHaptics struct {
	id        string
	state     *perception.State
	pulses    PulseSink
	scheduler *haptics.Scheduler
}

func newSelectedHaptics(deps Deps) (Feature, error) {
	return &selectedHaptics{
		id:        uuid.NewString(),
		state:     deps.State,
		pulses:    deps.Pulses,
		scheduler: haptics.NewScheduler(string(KindSelectedHaptics), deps.Haptics),
	}, nil
}

func (f *selectedHaptics) Kind() Kind { return KindSelectedHaptics }
func (f *selectedHaptics) ID() string { return f.id }

func (f *selectedHaptics) Action(in Inputs) {
	if f.state == nil {
		return
	}
	sel, ok := f.state.Selected()
	if !ok {
		f.scheduler.ClearBaseline()
		return
	}
	m, ok := sel.Meters()
	if !ok {
		m = math.NaN()
	}
	if ev, fire := f.scheduler.Tick(m, in.Now); fire && f.pulses != nil {
		f.pulses.Emit(ev)
	}
}

func (f *selectedHaptics) OnRemove(*perception.State) {
	f.scheduler.Reset()
}

// proximityHaptics publishes the nearest distance in the central window and
// pulses for it while nothing is selected.
type proximityHaptics struct {
	id        string
	state     *perception.State
	pulses    PulseSink
	window    int
	scheduler *haptics.Scheduler
}

func newProximityHaptics(deps Deps) (Feature, error) {
	window := deps.DepthWindow
	if window <= 0 {
		window = depth.DefaultWindow
	}
	return &proximityHaptics{
		id:        uuid.NewString(),
		state:     deps.State,
		pulses:    deps.Pulses,
		window:    window,
		scheduler: haptics.NewScheduler(string(KindProximityHaptics), deps.Haptics),
	}, nil
}

func (f *proximityHaptics) Kind() Kind { return KindProximityHaptics }
func (f *proximityHaptics) ID() string { return f.id }

func (f *proximityHaptics) Action(in Inputs) {
	if f.state == nil {
		return
	}
	m, ok := depth.MinDistanceInWindow(perception.FrameCenter, in.Depth, f.window)
	f.state.PublishCentralDistance(f.state.Token(f.id), m, ok)

	if _, selected := f.state.Selected(); selected {
		return
	}
	if !ok {
		m = math.NaN()
	}
	if ev, fire := f.scheduler.Tick(m, in.Now); fire && f.pulses != nil {
		f.pulses.Emit(ev)
	}
}

func (f *proximityHaptics) OnRemove(state *perception.State) {
	if state != nil {
		state.Release(f.id)
	}
	f.scheduler.Reset()
}
