package haptics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Dreta/Beacon/internal/log"
)

// Actuator delivers a pulse to the user.
type Actuator interface {
	Pulse(Intensity) error
}

// LogActuator logs pulses instead of driving hardware.
type LogActuator struct {
	Logger *slog.Logger
}

// Pulse implements Actuator.
func (a LogActuator) Pulse(i Intensity) error {
	l := a.Logger
	if l == nil {
		l = log.Component("haptics")
	}
	l.Debug("pulse", "intensity", i.String())
	return nil
}

// Recorder keeps every pulse in memory.
type Recorder struct {
	mu     sync.Mutex
	pulses []Intensity
}

// Pulse implements Actuator.
func (r *Recorder) Pulse(i Intensity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulses = append(r.pulses, i)
	return nil
}

// Pulses returns a copy of the recorded pulses.
func (r *Recorder) Pulses() []Intensity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Intensity, len(r.pulses))
	copy(out, r.pulses)
	return out
}

// Fanout pulses every actuator and returns the first error.
type Fanout []Actuator

// Pulse implements Actuator.
func (f Fanout) Pulse(i Intensity) error {
	var first error
	for _, a := range f {
		if err := a.Pulse(i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Emitter moves pulses off the frame path. Emit never blocks; when the queue
// is full the event is dropped since a newer one will follow.
type Emitter struct {
	act    Actuator
	events chan Event
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []func(Event)
}

// NewEmitter creates an emitter with the given queue depth.
func NewEmitter(act Actuator, queue int) *Emitter {
	if queue <= 0 {
		queue = 8
	}
	return &Emitter{
		act:    act,
		events: make(chan Event, queue),
		logger: log.Component("haptics"),
	}
}

// OnEvent registers a listener called after each delivered pulse.
func (e *Emitter) OnEvent(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Emit queues an event for delivery.
func (e *Emitter) Emit(ev Event) bool {
	select {
	case e.events <- ev:
		return true
	default:
		e.logger.Debug("pulse dropped", "source", ev.Source)
		return false
	}
}

// Run delivers queued events until ctx is cancelled.
func (e *Emitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			if err := e.act.Pulse(ev.Intensity); err != nil {
				e.logger.Warn("pulse failed", "source", ev.Source, "error", err)
				continue
			}
			e.mu.RLock()
			listeners := e.listeners
			e.mu.RUnlock()
			for _, fn := range listeners {
				fn(ev)
			}
		}
	}
}
