package features

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/perception"
)

type pulseLog struct {
	mu     sync.Mutex
	events []haptics.Event
}

func (p *pulseLog) Emit(ev haptics.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return true
}

func (p *pulseLog) Events() []haptics.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]haptics.Event(nil), p.events...)
}

func staticEngine(dets ...perception.Detection) func(detection.Config) (detection.Engine, error) {
	return func(detection.Config) (detection.Engine, error) {
		return detection.EngineFunc(func(context.Context, perception.Frame) ([]perception.Detection, error) {
			return dets, nil
		}), nil
	}
}

func frame() perception.Frame {
	return perception.Frame{Seq: 1, Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}
}

// uniformDepth returns a 10x10 depth grid filled with meters.
func uniformDepth(meters float32) *perception.DepthSample {
	values := make([]float32, 100)
	for i := range values {
		values[i] = meters
	}
	return &perception.DepthSample{Width: 10, Height: 10, Values: values}
}

func testDeps(state *perception.State, pulses PulseSink) Deps {
	return Deps{
		State:             state,
		Pool:              detection.NewPool(2),
		Pulses:            pulses,
		Haptics:           haptics.DefaultConfig(),
		DepthWindow:       4,
		ObjectModel:       detection.DefaultConfig(),
		TrafficLightModel: detection.TrafficLightConfig(),
	}
}

func TestIdentify_PublishesNearestWithDistance(t *testing.T) {
	state := perception.NewState()
	deps := testDeps(state, nil)
	deps.OpenEngine = staticEngine(
		perception.Detection{Label: "chair", Box: perception.RectFromCenter(0.2, 0.2, 0.1, 0.1), Confidence: 0.9},
		perception.Detection{Label: "door", Box: perception.RectFromCenter(0.55, 0.5, 0.1, 0.1), Confidence: 0.6},
	)
	r := NewRegistry(deps)
	require.NoError(t, r.Enable(KindIdentify))

	r.Dispatch(Inputs{Ctx: context.Background(), Frame: frame(), Depth: uniformDepth(1.5), Now: time.Now()})
	deps.Pool.Wait()

	sel, ok := state.Selected()
	require.True(t, ok)
	assert.Equal(t, "door", sel.Label)
	m, ok := sel.Meters()
	require.True(t, ok)
	assert.InDelta(t, 1.5, m, 1e-6)
	assert.Len(t, state.Snapshot().Detections, 2)

	require.NoError(t, r.Disable(KindIdentify))
	snap := state.Snapshot()
	assert.Nil(t, snap.Selected)
	assert.Empty(t, snap.Detections)
}

func TestIdentify_EmptyResultClearsSelection(t *testing.T) {
	state := perception.NewState()
	deps := testDeps(state, nil)

	var mu sync.Mutex
	results := [][]perception.Detection{
		{{Label: "person", Box: perception.RectFromCenter(0.5, 0.5, 0.2, 0.2), Confidence: 0.8}},
		nil,
	}
	deps.OpenEngine = func(detection.Config) (detection.Engine, error) {
		return detection.EngineFunc(func(context.Context, perception.Frame) ([]perception.Detection, error) {
			mu.Lock()
			defer mu.Unlock()
			out := results[0]
			results = results[1:]
			return out, nil
		}), nil
	}
	r := NewRegistry(deps)
	require.NoError(t, r.Enable(KindIdentify))

	r.Dispatch(Inputs{Ctx: context.Background(), Frame: frame()})
	deps.Pool.Wait()
	_, ok := state.Selected()
	require.True(t, ok)

	r.Dispatch(Inputs{Ctx: context.Background(), Frame: frame()})
	deps.Pool.Wait()
	_, ok = state.Selected()
	assert.False(t, ok)
}

func TestIdentify_LateResultAfterStopIsDiscarded(t *testing.T) {
	state := perception.NewState()
	deps := testDeps(state, nil)

	release := make(chan struct{})
	deps.OpenEngine = func(detection.Config) (detection.Engine, error) {
		return detection.EngineFunc(func(context.Context, perception.Frame) ([]perception.Detection, error) {
			<-release
			return []perception.Detection{{Label: "car", Box: perception.RectFromCenter(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}, nil
		}), nil
	}
	r := NewRegistry(deps)
	require.NoError(t, r.Enable(KindIdentify))

	r.Dispatch(Inputs{Ctx: context.Background(), Frame: frame()})
	state.Reset()
	close(release)
	deps.Pool.Wait()

	_, ok := state.Selected()
	assert.False(t, ok)
	assert.Empty(t, state.Snapshot().Detections)
}

func TestTrafficLight_PublishesAndClears(t *testing.T) {
	state := perception.NewState()
	deps := testDeps(state, nil)
	deps.OpenEngine = staticEngine(
		perception.Detection{Label: "red", Box: perception.RectFromCenter(0.5, 0.4, 0.1, 0.2), Confidence: 0.7},
	)
	r := NewRegistry(deps)
	require.NoError(t, r.Enable(KindTrafficLight))

	r.Dispatch(Inputs{Ctx: context.Background(), Frame: frame()})
	deps.Pool.Wait()

	snap := state.Snapshot()
	require.NotNil(t, snap.TrafficLight)
	assert.Equal(t, "red", snap.TrafficLight.Label)

	require.NoError(t, r.Enable(KindIdentify))
	assert.False(t, r.IsEnabled(KindTrafficLight))
	assert.Nil(t, state.Snapshot().TrafficLight)
}

func TestModelFailureMarksUnavailable(t *testing.T) {
	deps := testDeps(perception.NewState(), nil)
	deps.OpenEngine = func(detection.Config) (detection.Engine, error) {
		return nil, detection.ErrModelNotFound
	}
	r := NewRegistry(deps)

	err := r.Enable(KindIdentify)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, r.IsEnabled(KindIdentify))
}

// selectAt publishes a selection the way identify would.
func selectAt(t *testing.T, state *perception.State, meters float64) {
	t.Helper()
	state.Claim("identify-test", perception.FieldSelected, perception.FieldDetections)
	d := perception.Detection{Label: "door", Box: perception.RectFromCenter(0.5, 0.5, 0.2, 0.2)}.WithDistance(meters, true)
	require.True(t, state.PublishDetections(state.Token("identify-test"), []perception.Detection{d}, &d))
}

func TestSelectedHaptics(t *testing.T) {
	state := perception.NewState()
	pulses := &pulseLog{}
	f, err := newSelectedHaptics(testDeps(state, pulses))
	require.NoError(t, err)
	start := time.Unix(0, 0)

	f.Action(Inputs{Now: start})
	assert.Empty(t, pulses.Events(), "nothing selected")

	selectAt(t, state, 1.5)
	f.Action(Inputs{Now: start})
	require.Len(t, pulses.Events(), 1)
	assert.Equal(t, haptics.IntensityMedium, pulses.Events()[0].Intensity)
	assert.Equal(t, string(KindSelectedHaptics), pulses.Events()[0].Source)

	f.Action(Inputs{Now: start.Add(50 * time.Millisecond)})
	assert.Len(t, pulses.Events(), 1, "interval has not elapsed")

	state.Release("identify-test")
	f.Action(Inputs{Now: start.Add(60 * time.Millisecond)})
	_, hasBaseline := f.(*selectedHaptics).scheduler.Baseline()
	assert.False(t, hasBaseline, "losing the selection clears the baseline")

	selectAt(t, state, 1.5)
	f.Action(Inputs{Now: start.Add(90 * time.Millisecond)})
	assert.Len(t, pulses.Events(), 1, "a flickering selection keeps the cadence")

	f.Action(Inputs{Now: start.Add(250 * time.Millisecond)})
	assert.Len(t, pulses.Events(), 2)
}

func TestProximityHaptics(t *testing.T) {
	state := perception.NewState()
	pulses := &pulseLog{}
	deps := testDeps(state, pulses)
	r := NewRegistry(deps)
	require.NoError(t, r.Enable(KindProximityHaptics))
	start := time.Unix(0, 0)

	r.Dispatch(Inputs{Depth: uniformDepth(0.9), Now: start})
	m, ok := state.CentralDistance()
	require.True(t, ok)
	assert.InDelta(t, 0.9, m, 1e-6)
	require.Len(t, pulses.Events(), 1)
	assert.Equal(t, haptics.IntensityHigh, pulses.Events()[0].Intensity)

	r.Dispatch(Inputs{Depth: uniformDepth(7), Now: start.Add(time.Second)})
	assert.Len(t, pulses.Events(), 1, "beyond cutoff is silent")

	r.Dispatch(Inputs{Now: start.Add(2 * time.Second)})
	_, ok = state.CentralDistance()
	assert.False(t, ok, "no depth clears the central distance")

	require.NoError(t, r.Disable(KindProximityHaptics))
	assert.Empty(t, state.Owner(perception.FieldCentralDistance))
}

func TestProximityHaptics_YieldsToSelection(t *testing.T) {
	state := perception.NewState()
	pulses := &pulseLog{}
	f, err := newProximityHaptics(testDeps(state, pulses))
	require.NoError(t, err)
	state.Claim(f.ID(), perception.FieldCentralDistance)

	selectAt(t, state, 2.5)
	f.Action(Inputs{Depth: uniformDepth(0.8), Now: time.Unix(0, 0)})

	m, ok := state.CentralDistance()
	require.True(t, ok, "central distance is still published")
	assert.InDelta(t, 0.8, m, 1e-6)
	assert.Empty(t, pulses.Events())
}

func TestDefaultEnabled(t *testing.T) {
	r := NewRegistry(testDeps(perception.NewState(), &pulseLog{}))
	for _, k := range DefaultEnabled {
		require.NoError(t, r.Enable(k))
	}
	assert.Equal(t, []Kind{KindSelectedHaptics, KindProximityHaptics}, r.Enabled())
	assert.True(t, errors.Is(r.Enable("bogus"), ErrUnknownKind))
}
