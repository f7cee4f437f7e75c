package detection

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/perception"
)

// Pool runs inferences off the frame path with a fixed concurrency limit.
// A frame submitted while the pool is saturated is skipped, not queued.
type Pool struct {
	group   errgroup.Group
	logger  *slog.Logger
	skipped atomic.Uint64
	ran     atomic.Uint64
}

// NewPool creates a pool running at most size inferences at once.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{logger: log.Component("detection-pool")}
	p.group.SetLimit(size)
	return p
}

// Submit starts an inference of frame on engine if a slot is free. deliver
// receives the detections, or nil when inference failed. deliver is not
// called once ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, engine Engine, frame perception.Frame, deliver func([]perception.Detection)) bool {
	ok := p.group.TryGo(func() error {
		p.ran.Add(1)
		dets, err := engine.Detect(ctx, frame)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.logger.Debug("inference failed", "seq", frame.Seq, "error", err)
			dets = nil
		}
		deliver(dets)
		return nil
	})
	if !ok {
		p.skipped.Add(1)
	}
	return ok
}

// Wait blocks until every running inference has returned.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}

// Skipped returns the number of frames dropped because the pool was full.
func (p *Pool) Skipped() uint64 { return p.skipped.Load() }

// Ran returns the number of inferences started.
func (p *Pool) Ran() uint64 { return p.ran.Load() }
