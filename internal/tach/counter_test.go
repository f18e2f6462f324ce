package tach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterPulseAndSnapshot(t *testing.T) {
	var c Counter

	base := int64(1_000_000_000)
	ms := int64(1_000_000)
	c.Pulse(base)
	c.Pulse(base + 2*ms)
	c.Pulse(base + 3*ms)

	snap := c.Snapshot()
	assert.Equal(t, uint32(3), snap.Pulses)
	assert.Equal(t, uint32(1000), snap.MinDtMicro, "shortest gap was 1 ms")
}

func TestCounterSnapshotResets(t *testing.T) {
	var c Counter
	c.Pulse(1_000_000_000)
	c.Pulse(1_001_000_000)
	_ = c.Snapshot()

	snap := c.Snapshot()
	assert.Equal(t, uint32(0), snap.Pulses)
	assert.Equal(t, uint32(0), snap.MinDtMicro)
}

func TestCounterSinglePulseHasNoSpacing(t *testing.T) {
	var c Counter
	c.Pulse(5_000_000_000)

	snap := c.Snapshot()
	assert.Equal(t, uint32(1), snap.Pulses)
	assert.Equal(t, uint32(0), snap.MinDtMicro, "one pulse has no interval yet")
}

func TestCounterMinSpacingAcrossWindows(t *testing.T) {
	var c Counter
	base := int64(1_000_000_000)
	ms := int64(1_000_000)

	c.Pulse(base)
	c.Pulse(base + 5*ms)
	_ = c.Snapshot()

	// First pulse of the new window still measures against the last edge of
	// the old one.
	c.Pulse(base + 6*ms)
	snap := c.Snapshot()
	assert.Equal(t, uint32(1), snap.Pulses)
	assert.Equal(t, uint32(1000), snap.MinDtMicro)
}

func TestRPM(t *testing.T) {
	tests := []struct {
		name         string
		pulses       uint32
		intervalS    float64
		pulsesPerRev int
		want         float64
	}{
		{"idle window", 0, 0.01, 128, 0},
		{"128 pulses per second is 60 rpm", 128, 1.0, 128, 60},
		{"one pulse per 10 ms window", 1, 0.01, 128, 46.875},
		{"high speed", 640, 0.1, 128, 3000},
		{"zero interval guarded", 100, 0, 128, 0},
		{"zero teeth guarded", 100, 0.01, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RPM(tt.pulses, tt.intervalS, tt.pulsesPerRev), 1e-9)
		})
	}
}

func TestSmootherSeedsAndConverges(t *testing.T) {
	s := NewSmoother(0.2)

	assert.InDelta(t, 1000.0, s.Update(1000), 1e-9, "first sample seeds the state")
	assert.InDelta(t, 1000*0.8+2000*0.2, s.Update(2000), 1e-9)

	for i := 0; i < 200; i++ {
		s.Update(2000)
	}
	assert.InDelta(t, 2000.0, s.Value(), 0.01)
}
