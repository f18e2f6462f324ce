package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accelAtRoll builds a gravity vector for a pure roll angle in degrees.
func accelAtRoll(rollDeg float64) (ax, ay, az float64) {
	rad := rollDeg * math.Pi / 180.0
	return 0, math.Sin(rad), math.Cos(rad)
}

func TestOrientationFilterSeedIgnoresGyro(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(DefaultThresholds())
	assert.False(t, f.Initialized())

	// Gyro rates must be irrelevant on the seeding cycle: the first usable
	// tilt is taken as-is.
	ax, ay, az := accelAtRoll(10)
	roll, pitch := f.Update(ax, ay, az, 500, 500, 0.01)

	require.True(t, f.Initialized())
	assert.InDelta(t, 10.0, roll, 1e-9)
	assert.InDelta(t, 0.0, pitch, 1e-9)
}

func TestOrientationFilterStaysUninitializedOnBadAccel(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(DefaultThresholds())
	roll, pitch := f.Update(0, 0, 0, 10, 10, 0.01)
	assert.False(t, f.Initialized())
	assert.Equal(t, 0.0, roll)
	assert.Equal(t, 0.0, pitch)

	ax, ay, az := accelAtRoll(5)
	roll, _ = f.Update(ax, ay, az, 0, 0, 0.01)
	assert.True(t, f.Initialized())
	assert.InDelta(t, 5.0, roll, 1e-9)
}

func TestOrientationFilterHoldsSteadyState(t *testing.T) {
	t.Parallel()

	// Zero gyro rate and a constant 10 degree tilt reference: once seeded at
	// 10, the blend must keep the estimate at 10 indefinitely.
	f := NewOrientationFilter(DefaultThresholds())
	ax, ay, az := accelAtRoll(10)

	var roll float64
	for i := 0; i < 500; i++ {
		roll, _ = f.Update(ax, ay, az, 0, 0, 0.01)
	}
	assert.InDelta(t, 10.0, roll, 1e-6)
}

func TestOrientationFilterConvergesToAccelReference(t *testing.T) {
	t.Parallel()

	// Seed level, then feed a constant 10 degree reference with zero gyro.
	// Each low-dynamic step closes (1-Beta) of the gap, so the estimate must
	// converge to the reference.
	f := NewOrientationFilter(DefaultThresholds())
	f.Update(0, 0, 1, 0, 0, 0.01)

	ax, ay, az := accelAtRoll(10)
	var roll float64
	for i := 0; i < 2000; i++ {
		roll, _ = f.Update(ax, ay, az, 0, 0, 0.01)
	}
	assert.InDelta(t, 10.0, roll, 0.01)
}

func TestOrientationFilterHighDynamicBypass(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(DefaultThresholds())
	f.Update(0, 0, 1, 0, 0, 0.01)
	require.True(t, f.Initialized())
	prev := f.Roll()

	// Magnitude 1.3 g deviates from 1 g by more than the 0.15 g tolerance:
	// the accel reference must be ignored entirely this cycle.
	roll, _ := f.Update(0, 0, 1.3, 50, 0, 0.02)
	assert.InDelta(t, prev+50*0.02, roll, 1e-12)
}

func TestOrientationFilterLowDynamicFlag(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(DefaultThresholds())
	assert.True(t, f.LowDynamic(0, 0, 1.0))
	assert.True(t, f.LowDynamic(0, 0, 1.14))
	assert.True(t, f.LowDynamic(0, 0, 0.86))
	assert.False(t, f.LowDynamic(0, 0, 1.2))
	assert.False(t, f.LowDynamic(0, 0, 0.8))
	assert.False(t, f.LowDynamic(0.9, 0.9, 0.9))
}

func TestOrientationFilterClampsImplausibleDt(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(DefaultThresholds())
	f.Update(0, 0, 1, 0, 0, 0.01)
	prev := f.Roll()

	// A 5 second interval is a stall, not a real integration step. With the
	// accel reference bypassed (1.5 g), the integral must advance by the
	// nominal 0.01 s, not by 5 s.
	roll, _ := f.Update(0, 0, 1.5, 10, 0, 5.0)
	assert.InDelta(t, prev+10*NominalDt, roll, 1e-12)

	prev = roll
	roll, _ = f.Update(0, 0, 1.5, 10, 0, 0)
	assert.InDelta(t, prev+10*NominalDt, roll, 1e-12)

	prev = roll
	roll, _ = f.Update(0, 0, 1.5, 10, 0, -0.02)
	assert.InDelta(t, prev+10*NominalDt, roll, 1e-12)
}

func TestClampDt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"normal", 0.01, 0.01},
		{"upper bound kept", 0.1, 0.1},
		{"zero", 0, NominalDt},
		{"negative", -1, NominalDt},
		{"stall", 5.0, NominalDt},
		{"just above max", 0.1001, NominalDt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampDt(tt.in))
		})
	}
}
