package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTiltFromAccel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ax, ay, az float64
		roll       float64
		pitch      float64
	}{
		{"level", 0, 0, 1, 0, 0},
		{"rolled right 90", 0, 1, 0, 90, 0},
		{"rolled left 90", 0, -1, 0, -90, 0},
		{"nose up 90", -1, 0, 0, 0, 90},
		{"nose down 90", 1, 0, 0, 0, -90},
		{"rolled 45", 0, math.Sin(math.Pi / 4), math.Cos(math.Pi / 4), 45, 0},
		{"pitched 30", -math.Sin(math.Pi / 6), 0, math.Cos(math.Pi / 6), 0, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roll, pitch, ok := TiltFromAccel(tt.ax, tt.ay, tt.az)
			assert.True(t, ok)
			assert.InDelta(t, tt.roll, roll, 1e-9)
			assert.InDelta(t, tt.pitch, pitch, 1e-9)
		})
	}
}

func TestTiltFromAccelDegenerateVector(t *testing.T) {
	t.Parallel()

	_, _, ok := TiltFromAccel(0, 0, 0)
	assert.False(t, ok, "zero-magnitude vector has no direction")

	_, _, ok = TiltFromAccel(1e-9, -1e-9, 1e-9)
	assert.False(t, ok, "sub-epsilon vector must be rejected")
}

func TestTiltMagnitudeIndependence(t *testing.T) {
	t.Parallel()

	// Tilt is a direction; scaling the vector must not change the angles.
	r1, p1, ok1 := TiltFromAccel(0.1, 0.2, 0.97)
	r2, p2, ok2 := TiltFromAccel(0.2, 0.4, 1.94)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.InDelta(t, r1, r2, 1e-9)
	assert.InDelta(t, p1, p2, 1e-9)
}
