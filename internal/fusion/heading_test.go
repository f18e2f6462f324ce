package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/gps"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/units"
)

// fixAt builds a valid fix with the given course and speed in mph.
func fixAt(courseDeg, speedMPH float64) gps.Fix {
	return gps.Fix{
		Valid:       true,
		CourseValid: true,
		CourseDeg:   courseDeg,
		SpeedKnots:  units.MPHToKnots(speedMPH),
	}
}

// snappedFuser returns a fuser initialized with yaw snapped to the given
// course.
func snappedFuser(t *testing.T, courseDeg float64) *HeadingFuser {
	t.Helper()
	h := NewHeadingFuser(DefaultThresholds())
	h.Update(0, 0.01, fixAt(courseDeg, 20), 0)
	require.Equal(t, ModeGyroOnly, h.Mode())
	require.InDelta(t, courseDeg, h.YawGyro(), 1e-9)
	return h
}

func TestHeadingIntegratesBeforeInit(t *testing.T) {
	t.Parallel()

	h := NewHeadingFuser(DefaultThresholds())
	fused := h.Update(10, 0.1, gps.Fix{}, 0)

	assert.Equal(t, ModeUninitialized, h.Mode())
	assert.Equal(t, 0, h.Mode().Flag())
	assert.InDelta(t, 1.0, fused, 1e-9)
	assert.InDelta(t, 1.0, h.YawGyro(), 1e-9)
}

func TestHeadingSnapsToFirstTrustedCourse(t *testing.T) {
	t.Parallel()

	h := NewHeadingFuser(DefaultThresholds())

	// Below the init speed: no snap, keep integrating.
	h.Update(0, 0.01, fixAt(200, 3), 0)
	assert.Equal(t, ModeUninitialized, h.Mode())

	// Course invalid: no snap even when fast.
	slow := fixAt(200, 20)
	slow.CourseValid = false
	h.Update(0, 0.01, slow, 0)
	assert.Equal(t, ModeUninitialized, h.Mode())

	// Valid and above init speed: hard snap of both estimates.
	fused := h.Update(0, 0.01, fixAt(200, 6), 0)
	assert.Equal(t, ModeGyroOnly, h.Mode())
	assert.InDelta(t, 200.0, fused, 1e-9)
	assert.InDelta(t, 200.0, h.YawGyro(), 1e-9)
}

func TestHeadingProportionalCorrection(t *testing.T) {
	t.Parallel()

	h := snappedFuser(t, 100)

	// Gyro at 100, GPS at 110, all gates pass: nudge by 0.15 of the error.
	fused := h.Update(0, 0.01, fixAt(110, 20), 0)

	assert.Equal(t, ModeGPSCorrected, h.Mode())
	assert.Equal(t, 1, h.Mode().Flag())
	assert.InDelta(t, 101.5, fused, 1e-9)
	// The pure-integration estimate is never pulled by GPS.
	assert.InDelta(t, 100.0, h.YawGyro(), 1e-9)
}

func TestHeadingCorrectionAcrossNorth(t *testing.T) {
	t.Parallel()

	h := snappedFuser(t, 350)

	// Error must take the short way across 0/360.
	fused := h.Update(0, 0.01, fixAt(10, 20), 0)
	assert.InDelta(t, 353.0, fused, 1e-9)
}

func TestHeadingGateRejection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fix  func() gps.Fix
		lat  float64
		gz   float64
	}{
		{"slow", func() gps.Fix { return fixAt(110, 10) }, 0, 0},
		{"course invalid", func() gps.Fix {
			f := fixAt(110, 20)
			f.CourseValid = false
			return f
		}, 0, 0},
		{"cornering", func() gps.Fix { return fixAt(110, 20) }, 0.2, 0},
		{"rotating", func() gps.Fix { return fixAt(110, 20) }, 0, 30},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := snappedFuser(t, 100)
			fused := h.Update(tt.gz, 0.01, tt.fix(), tt.lat)

			assert.Equal(t, ModeGyroOnly, h.Mode())
			assert.Equal(t, 0, h.Mode().Flag())
			assert.InDelta(t, h.YawGyro(), fused, 1e-9, "rejection must fall back to pure integration")
			// gz also integrates: 30 deg/s over 0.01 s.
			assert.InDelta(t, 100.0+tt.gz*0.01, h.YawGyro(), 1e-9)
		})
	}
}

func TestHeadingIntegrationWrapsAtNorth(t *testing.T) {
	t.Parallel()

	h := snappedFuser(t, 350)
	fused := h.Update(100, 0.1, gps.Fix{}, 0)

	assert.InDelta(t, 0.0, fused, 1e-9)
	assert.Equal(t, ModeGyroOnly, h.Mode())
}

func TestHeadingClampsImplausibleDt(t *testing.T) {
	t.Parallel()

	h := snappedFuser(t, 100)
	fused := h.Update(10, 5.0, gps.Fix{}, 0)

	// 5 s stall is replaced by the nominal interval.
	assert.InDelta(t, 100.0+10*NominalDt, fused, 1e-9)
}

func TestGatesPredicate(t *testing.T) {
	t.Parallel()

	thr := DefaultThresholds()

	g := thr.Gates(fixAt(90, 20), 0.05, 10)
	assert.True(t, g.CourseValid)
	assert.True(t, g.SpeedOK)
	assert.True(t, g.LatAccelOK)
	assert.True(t, g.YawRateOK)
	assert.True(t, g.AllPass())

	g = thr.Gates(fixAt(90, 11.9), 0.05, 10)
	assert.False(t, g.SpeedOK)
	assert.False(t, g.AllPass())

	g = thr.Gates(fixAt(90, 20), -0.16, 10)
	assert.False(t, g.LatAccelOK, "gate is on magnitude, sign must not matter")

	g = thr.Gates(fixAt(90, 20), 0.05, -26)
	assert.False(t, g.YawRateOK)
}

func TestHeadingModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uninitialized", ModeUninitialized.String())
	assert.Equal(t, "gyro-only", ModeGyroOnly.String())
	assert.Equal(t, "gps-corrected", ModeGPSCorrected.String())
}
