// Package pipeline connects the capture session to the feature registry and
// owns the start/stop lifecycle of a perception session.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Dreta/Beacon/internal/clock"
	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/perception"
)

// ErrCaptureUnavailable is returned when the capture session cannot start.
var ErrCaptureUnavailable = errors.New("pipeline: capture unavailable")

// Source produces frames and depth samples.
type Source interface {
	RequestStart(ctx context.Context) bool
	Stop()
	Frames() <-chan perception.Frame
	Depth() <-chan perception.DepthSample
}

// Dispatcher runs features for a frame.
type Dispatcher interface {
	Dispatch(features.Inputs)
}

// Pipeline dispatches every captured frame to the enabled features together
// with the most recent depth sample.
type Pipeline struct {
	source     Source
	dispatcher Dispatcher
	state      *perception.State
	clock      clock.Clock
	logger     *slog.Logger

	depth      atomic.Pointer[perception.DepthSample]
	dispatched atomic.Uint64

	// mu serializes dispatch with session changes so no frame is dispatched
	// into a session that already stopped.
	mu      sync.Mutex
	session context.Context
	cancel  context.CancelFunc
}

// New creates a pipeline.
func New(source Source, dispatcher Dispatcher, state *perception.State) *Pipeline {
	return &Pipeline{
		source:     source,
		dispatcher: dispatcher,
		state:      state,
		clock:      clock.Real{},
		logger:     log.Component("pipeline"),
	}
}

// SetClock replaces the clock passed to features.
func (p *Pipeline) SetClock(c clock.Clock) {
	p.clock = c
}

// StartCapture starts a perception session. Starting a running session is a
// no-op.
func (p *Pipeline) StartCapture(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return nil
	}
	if !p.source.RequestStart(ctx) {
		return ErrCaptureUnavailable
	}
	p.session, p.cancel = context.WithCancel(context.Background())
	p.logger.Info("session started", "generation", p.state.Generation())
	return nil
}

// StopCapture ends the session and clears the shared state. In-flight
// results from the old session are discarded. Safe to call in any state.
func (p *Pipeline) StopCapture() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source.Stop()
	if p.cancel != nil {
		p.cancel()
	}
	p.session, p.cancel = nil, nil
	p.depth.Store(nil)
	p.state.Reset()
	p.logger.Info("session stopped", "generation", p.state.Generation())
}

// Running reports whether a session is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Dispatched returns the number of frames handed to features.
func (p *Pipeline) Dispatched() uint64 { return p.dispatched.Load() }

// Run consumes the source until ctx is cancelled or both streams close.
func (p *Pipeline) Run(ctx context.Context) error {
	frames := p.source.Frames()
	depth := p.source.Depth()

	for frames != nil || depth != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, ok := <-depth:
			if !ok {
				depth = nil
				continue
			}
			p.depth.Store(&d)

		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			p.dispatch(f)
		}
	}
	return nil
}

func (p *Pipeline) dispatch(f perception.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	p.dispatcher.Dispatch(features.Inputs{
		Ctx:   p.session,
		Frame: f,
		Depth: p.depth.Load(),
		Now:   p.clock.Now(),
	})
	p.dispatched.Add(1)
	p.logger.Debug("frame dispatched", "seq", f.Seq)
}
