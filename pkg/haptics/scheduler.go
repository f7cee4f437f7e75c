// Package haptics turns live distances into rate-limited, intensity-tiered
// pulses and drives the actuator that delivers them.
package haptics

import (
	"math"
	"sync"
	"time"
)

// Intensity is the strength of a single pulse.
type Intensity uint8

const (
	IntensityNone Intensity = iota
	IntensityLow
	IntensityMedium
	IntensityHigh
)

func (i Intensity) String() string {
	switch i {
	case IntensityLow:
		return "low"
	case IntensityMedium:
		return "medium"
	case IntensityHigh:
		return "high"
	}
	return "none"
}

// MarshalText encodes the intensity as its name.
func (i Intensity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Config holds the distance-to-cadence mapping.
type Config struct {
	Cutoff       float64       // No feedback beyond this distance (m)
	NearDistance float64       // Distance at which the interval bottoms out (m)
	BaseInterval time.Duration // Interval at NearDistance before clamping
	MinInterval  time.Duration // Shortest allowed interval
	MaxInterval  time.Duration // Longest allowed interval, reached at Cutoff
	Hysteresis   float64       // Distance change (m) needed to recompute the interval
	HighBelow    float64       // Distances below this pulse high
	MediumBelow  float64       // Distances below this pulse medium
}

// DefaultConfig returns the tuning used on device.
func DefaultConfig() Config {
	return Config{
		Cutoff:       5.0,
		NearDistance: 0.7,
		BaseInterval: 50 * time.Millisecond,
		MinInterval:  100 * time.Millisecond,
		MaxInterval:  time.Second,
		Hysteresis:   0.1,
		HighBelow:    1.0,
		MediumBelow:  2.0,
	}
}

// Interval maps a distance to a firing interval by linear interpolation
// between BaseInterval at NearDistance and MaxInterval at Cutoff, clamped to
// [MinInterval, MaxInterval].
func (c Config) Interval(distance float64) time.Duration {
	span := c.Cutoff - c.NearDistance
	fraction := 1.0
	if span > 0 {
		fraction = math.Max(0, math.Min(1, (distance-c.NearDistance)/span))
	}

	base := c.BaseInterval.Seconds()
	secs := base + fraction*(c.MaxInterval.Seconds()-base)
	iv := time.Duration(math.Round(secs * float64(time.Second)))

	if iv < c.MinInterval {
		return c.MinInterval
	}
	if iv > c.MaxInterval {
		return c.MaxInterval
	}
	return iv
}

// IntensityFor maps a distance to a pulse intensity.
func (c Config) IntensityFor(distance float64) Intensity {
	switch {
	case distance < c.HighBelow:
		return IntensityHigh
	case distance < c.MediumBelow:
		return IntensityMedium
	default:
		return IntensityLow
	}
}

// Event is one pulse decision.
type Event struct {
	Source    string        `json:"source"`
	Intensity Intensity     `json:"intensity"`
	Distance  float64       `json:"distance"`
	Interval  time.Duration `json:"interval"`
	FiredAt   time.Time     `json:"fired_at"`
}

// Scheduler decides when to pulse for one feedback source. Independent
// sources must use separate schedulers.
type Scheduler struct {
	cfg    Config
	source string

	mu          sync.Mutex
	baseline    float64
	hasBaseline bool
	interval    time.Duration
	lastFired   time.Time
	hasFired    bool
}

// NewScheduler creates a scheduler for the named source.
func NewScheduler(source string, cfg Config) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		source:   source,
		interval: cfg.MaxInterval,
	}
}

// Tick feeds a distance reading taken at now. It returns the event and true
// when a pulse should fire.
func (s *Scheduler) Tick(distance float64, now time.Time) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if math.IsNaN(distance) || distance < 0 || distance > s.cfg.Cutoff {
		s.hasBaseline = false
		return Event{}, false
	}

	if !s.hasBaseline || math.Abs(distance-s.baseline) >= s.cfg.Hysteresis {
		s.baseline = distance
		s.hasBaseline = true
		s.interval = s.cfg.Interval(distance)
	}

	if s.hasFired && now.Sub(s.lastFired) < s.interval {
		return Event{}, false
	}

	s.lastFired = now
	s.hasFired = true
	return Event{
		Source:    s.source,
		Intensity: s.cfg.IntensityFor(distance),
		Distance:  distance,
		Interval:  s.interval,
		FiredAt:   now,
	}, true
}

// Interval returns the current firing interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Baseline returns the distance the current interval was computed from.
func (s *Scheduler) Baseline() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline, s.hasBaseline
}

// ClearBaseline forgets the hysteresis baseline so the next reading
// recomputes the interval. The firing history is kept, so a reading that
// returns quickly still waits out the current interval.
func (s *Scheduler) ClearBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasBaseline = false
}

// Reset clears the hysteresis baseline and firing history.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasBaseline = false
	s.hasFired = false
	s.interval = s.cfg.MaxInterval
}
