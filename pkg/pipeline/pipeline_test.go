package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreta/Beacon/internal/clock"
	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/perception"
)

type fakeSource struct {
	allow  bool
	frames chan perception.Frame
	depth  chan perception.DepthSample

	mu    sync.Mutex
	stops int
}

func newFakeSource(allow bool) *fakeSource {
	return &fakeSource{
		allow:  allow,
		frames: make(chan perception.Frame),
		depth:  make(chan perception.DepthSample),
	}
}

func (s *fakeSource) RequestStart(context.Context) bool    { return s.allow }
func (s *fakeSource) Frames() <-chan perception.Frame      { return s.frames }
func (s *fakeSource) Depth() <-chan perception.DepthSample { return s.depth }

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

type recordingDispatcher struct {
	mu     sync.Mutex
	inputs []features.Inputs
	seen   chan struct{}
}

func (d *recordingDispatcher) Dispatch(in features.Inputs) {
	d.mu.Lock()
	d.inputs = append(d.inputs, in)
	d.mu.Unlock()
	d.seen <- struct{}{}
}

func (d *recordingDispatcher) all() []features.Inputs {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]features.Inputs(nil), d.inputs...)
}

func runPipeline(t *testing.T, p *Pipeline) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		<-done
	}
}

func TestPipeline_DispatchesWithLatestDepth(t *testing.T) {
	defer leaktest.Check(t)()

	src := newFakeSource(true)
	disp := &recordingDispatcher{seen: make(chan struct{}, 4)}
	p := New(src, disp, perception.NewState())
	mock := clock.NewMock(time.Unix(50, 0))
	p.SetClock(mock)
	stop := runPipeline(t, p)
	defer stop()

	require.NoError(t, p.StartCapture(context.Background()))
	assert.True(t, p.Running())

	src.frames <- perception.Frame{Seq: 1}
	<-disp.seen

	src.depth <- perception.DepthSample{Width: 1, Height: 1, Values: []float32{1}}
	src.depth <- perception.DepthSample{Width: 1, Height: 1, Values: []float32{2}}
	src.frames <- perception.Frame{Seq: 2}
	<-disp.seen

	got := disp.all()
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Depth, "no depth before the first sample")
	require.NotNil(t, got[1].Depth)
	assert.Equal(t, []float32{2}, got[1].Depth.Values, "latest depth wins")
	assert.Equal(t, time.Unix(50, 0), got[1].Now)
	assert.NoError(t, got[1].Ctx.Err())
	assert.Equal(t, uint64(2), p.Dispatched())
}

func TestPipeline_StopResetsSession(t *testing.T) {
	defer leaktest.Check(t)()

	src := newFakeSource(true)
	disp := &recordingDispatcher{seen: make(chan struct{}, 4)}
	state := perception.NewState()
	p := New(src, disp, state)
	stop := runPipeline(t, p)
	defer stop()

	require.NoError(t, p.StartCapture(context.Background()))
	src.frames <- perception.Frame{Seq: 1}
	<-disp.seen
	sessionCtx := disp.all()[0].Ctx

	state.Claim("owner", perception.FieldCentralDistance)
	tok := state.Token("owner")

	p.StopCapture()
	assert.False(t, p.Running())
	assert.Error(t, sessionCtx.Err(), "inference context is cancelled")
	assert.False(t, state.PublishCentralDistance(tok, 1.0, true), "old tokens are rejected")
	assert.Equal(t, 1, src.stops)

	// Frames arriving while stopped are not dispatched.
	src.frames <- perception.Frame{Seq: 2}
	select {
	case <-disp.seen:
		t.Fatal("frame dispatched while stopped")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPipeline_StartUnavailable(t *testing.T) {
	p := New(newFakeSource(false), &recordingDispatcher{}, perception.NewState())
	assert.ErrorIs(t, p.StartCapture(context.Background()), ErrCaptureUnavailable)
	assert.False(t, p.Running())

	p.StopCapture()
}

func TestPipeline_RunEndsWhenSourceCloses(t *testing.T) {
	defer leaktest.Check(t)()

	src := newFakeSource(true)
	p := New(src, &recordingDispatcher{seen: make(chan struct{}, 1)}, perception.NewState())

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	close(src.frames)
	close(src.depth)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
