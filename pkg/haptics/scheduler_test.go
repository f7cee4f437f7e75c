package haptics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(start time.Time, secs float64) time.Time {
	return start.Add(time.Duration(secs * float64(time.Second)))
}

func TestConfig_IntervalBounds(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		distance float64
		want     time.Duration
	}{
		{"touching", 0, 100 * time.Millisecond},
		{"at near distance", 0.7, 100 * time.Millisecond},
		{"at cutoff", 5.0, time.Second},
		{"beyond cutoff", 9.0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Interval(tt.distance); got != tt.want {
				t.Errorf("Interval(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestConfig_IntervalMonotonic(t *testing.T) {
	cfg := DefaultConfig()

	prev := cfg.Interval(0.7)
	for d := 0.7; d <= 5.0; d += 0.01 {
		iv := cfg.Interval(d)
		if iv < prev {
			t.Fatalf("interval decreased at %.2f m: %v < %v", d, iv, prev)
		}
		if iv < cfg.MinInterval || iv > cfg.MaxInterval {
			t.Fatalf("interval %v out of bounds at %.2f m", iv, d)
		}
		prev = iv
	}
}

func TestConfig_IntensityFor(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		distance float64
		want     Intensity
	}{
		{0.3, IntensityHigh},
		{0.999, IntensityHigh},
		{1.0, IntensityMedium},
		{1.99, IntensityMedium},
		{2.0, IntensityLow},
		{4.9, IntensityLow},
	}

	for _, tt := range tests {
		if got := cfg.IntensityFor(tt.distance); got != tt.want {
			t.Errorf("IntensityFor(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestScheduler_Scenario(t *testing.T) {
	s := NewScheduler("selected", DefaultConfig())
	start := time.Unix(1700000000, 0)

	// t=0: first reading always fires.
	ev, fired := s.Tick(1.5, at(start, 0))
	require.True(t, fired)
	assert.Equal(t, IntensityMedium, ev.Intensity)
	assert.InDelta(t, 0.2267, s.Interval().Seconds(), 0.001)

	// t=0.05: change of 0.05 m keeps the interval and it has not elapsed.
	_, fired = s.Tick(1.55, at(start, 0.05))
	assert.False(t, fired)
	base, _ := s.Baseline()
	assert.Equal(t, 1.5, base)

	// t=0.12: change of 0.6 m recomputes to the floor and fires high.
	ev, fired = s.Tick(0.9, at(start, 0.12))
	require.True(t, fired)
	assert.Equal(t, IntensityHigh, ev.Intensity)
	assert.Equal(t, 100*time.Millisecond, s.Interval())

	// t=0.50: 0.38 s since the last pulse, past the 0.1 s interval.
	_, fired = s.Tick(0.9, at(start, 0.50))
	assert.True(t, fired)

	// t=0.60: recompute to a longer interval; only 0.1 s has elapsed.
	_, fired = s.Tick(3.0, at(start, 0.60))
	assert.False(t, fired)
	assert.InDelta(t, 0.5581, s.Interval().Seconds(), 0.001)
	assert.Equal(t, IntensityLow, DefaultConfig().IntensityFor(3.0))
}

func TestScheduler_HysteresisReusesInterval(t *testing.T) {
	s := NewScheduler("selected", DefaultConfig())
	start := time.Unix(0, 0)

	_, fired := s.Tick(1.95, start)
	require.True(t, fired)
	before := s.Interval()

	// 0.06 m crosses the 2.0 m tier boundary without recomputing.
	ev, fired := s.Tick(2.01, at(start, 2))
	require.True(t, fired)
	assert.Equal(t, before, s.Interval(), "interval must be reused within hysteresis")
	assert.Equal(t, IntensityLow, ev.Intensity, "intensity follows the live distance")
}

func TestScheduler_BeyondCutoff(t *testing.T) {
	s := NewScheduler("proximity", DefaultConfig())
	start := time.Unix(0, 0)

	_, fired := s.Tick(5.01, start)
	assert.False(t, fired)
	_, ok := s.Baseline()
	assert.False(t, ok)

	_, fired = s.Tick(5.0, start)
	assert.True(t, fired, "the cutoff itself is inside the range")

	_, fired = s.Tick(12, at(start, 5))
	assert.False(t, fired)
	_, ok = s.Baseline()
	assert.False(t, ok, "out of range readings clear the baseline")
}

func TestScheduler_RejectsInvalidDistance(t *testing.T) {
	s := NewScheduler("proximity", DefaultConfig())
	_, fired := s.Tick(-1, time.Unix(0, 0))
	assert.False(t, fired)
}

func TestScheduler_Reset(t *testing.T) {
	s := NewScheduler("selected", DefaultConfig())
	start := time.Unix(0, 0)

	_, fired := s.Tick(0.5, start)
	require.True(t, fired)
	_, fired = s.Tick(0.5, at(start, 0.01))
	require.False(t, fired)

	s.Reset()
	_, ok := s.Baseline()
	assert.False(t, ok)
	assert.Equal(t, time.Second, s.Interval())

	_, fired = s.Tick(0.5, at(start, 0.02))
	assert.True(t, fired, "reset clears firing history")
}

func TestScheduler_ClearBaselineKeepsCadence(t *testing.T) {
	s := NewScheduler("selected", DefaultConfig())
	start := time.Unix(0, 0)

	// A detection that flickers in and out every frame for 300 ms.
	fires := 0
	for ms := 0; ms < 300; ms += 33 {
		if _, fired := s.Tick(3.0, start.Add(time.Duration(ms)*time.Millisecond)); fired {
			fires++
		}
		s.ClearBaseline()
		_, ok := s.Baseline()
		require.False(t, ok)
	}
	assert.Equal(t, 1, fires)
	assert.Greater(t, s.Interval(), 300*time.Millisecond)

	_, fired := s.Tick(3.0, at(start, 0.56))
	assert.True(t, fired, "fires again once the interval has passed")
}

func TestScheduler_IndependentInstances(t *testing.T) {
	cfg := DefaultConfig()
	selected := NewScheduler("selected", cfg)
	ambient := NewScheduler("proximity", cfg)
	start := time.Unix(0, 0)

	_, fired := selected.Tick(0.8, start)
	require.True(t, fired)

	_, fired = ambient.Tick(4.0, at(start, 0.01))
	assert.True(t, fired, "ambient scheduler has its own firing history")

	base, _ := selected.Baseline()
	assert.Equal(t, 0.8, base)
	base, _ = ambient.Baseline()
	assert.Equal(t, 4.0, base)
}

func TestIntensity_MarshalText(t *testing.T) {
	b, err := IntensityHigh.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "high", string(b))
	assert.Equal(t, "none", IntensityNone.String())
}
