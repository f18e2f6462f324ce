package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapDeg(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"crossing north upward", []float64{350, 355, 0, 5}, []float64{350, 355, 360, 365}},
		{"crossing north downward", []float64{10, 5, 355}, []float64{10, 5, -5}},
		{"no wrap", []float64{10, 20, 30}, []float64{10, 20, 30}},
		{"empty", nil, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnwrapDeg(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestUnwrapDegCarriesAcrossNaN(t *testing.T) {
	got := UnwrapDeg([]float64{350, math.NaN(), 5})

	assert.InDelta(t, 350.0, got[0], 1e-9)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 365.0, got[2], 1e-9, "continuity resumes from the last finite sample")
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{10, 20, 20}, 0.5)

	assert.InDelta(t, 10.0, got[0], 1e-9, "seeded from the first sample")
	assert.InDelta(t, 15.0, got[1], 1e-9)
	assert.InDelta(t, 17.5, got[2], 1e-9)

	assert.Empty(t, EMA(nil, 0.5))
}

func TestForwardFill(t *testing.T) {
	nan := math.NaN()
	got := ForwardFill([]float64{nan, 1, nan, nan, 2, nan})

	want := []float64{1, 1, 1, 1, 2, 2}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestForwardFillAllNaN(t *testing.T) {
	got := ForwardFill([]float64{math.NaN(), math.NaN()})
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestInterp(t *testing.T) {
	ts := []float64{0, 1, 2, 4}
	sig := []float64{0, 10, 20, 40}

	assert.InDelta(t, 5.0, Interp(0.5, ts, sig), 1e-9)
	assert.InDelta(t, 30.0, Interp(3.0, ts, sig), 1e-9)
	assert.InDelta(t, 10.0, Interp(1.0, ts, sig), 1e-9, "exact sample")
	assert.InDelta(t, 0.0, Interp(-1.0, ts, sig), 1e-9, "left edge holds")
	assert.InDelta(t, 40.0, Interp(9.0, ts, sig), 1e-9, "right edge holds")
}

func TestShiftBackInTime(t *testing.T) {
	ts := []float64{0, 1, 2, 3}
	sig := []float64{0, 10, 20, 30}

	got := ShiftBackInTime(sig, ts, 0.5)
	want := []float64{5, 15, 25, 30}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestShiftBackInTimeZeroLag(t *testing.T) {
	ts := []float64{0, 1, 2}
	sig := []float64{3, 1, 4}

	got := ShiftBackInTime(sig, ts, 0)
	for i := range sig {
		assert.InDelta(t, sig[i], got[i], 1e-9)
	}
}
