// Package analysis replays session logs offline: it reconstructs smoothed
// GPS heading, aligns the on-board yaw estimate to the GPS frame, derives
// slip angle and engine RPM, and detects laps. Signals with gaps use NaN,
// matching the gating convention of the plotting tooling this feeds.
package analysis

import (
	"math"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/fusion"
)

// UnwrapDeg removes 360 degree jumps, returning a continuous angle series.
// NaN samples stay NaN and do not break continuity across the gap.
func UnwrapDeg(angles []float64) []float64 {
	out := make([]float64, len(angles))
	havePrev := false
	var prevIn, prevOut float64
	for i, a := range angles {
		if math.IsNaN(a) {
			out[i] = math.NaN()
			continue
		}
		if !havePrev {
			out[i] = a
		} else {
			out[i] = prevOut + fusion.Wrap180(a-prevIn)
		}
		prevIn, prevOut = a, out[i]
		havePrev = true
	}
	return out
}

// EMA applies a first-order exponential moving average, seeding from the
// first sample. Callers forward-fill gaps first; NaN here poisons the tail.
func EMA(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ForwardFill replaces NaN runs with the last finite value. Leading NaNs
// take the first finite value. An all-NaN series comes back unchanged.
func ForwardFill(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)

	first := -1
	for i, v := range out {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first < 0 {
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	last := out[first]
	for i := first + 1; i < len(out); i++ {
		if math.IsNaN(out[i]) {
			out[i] = last
		} else {
			last = out[i]
		}
	}
	return out
}

// Interp linearly interpolates sig (sampled at times t, ascending) at time
// x, holding the edge values outside the range.
func Interp(x float64, t, sig []float64) float64 {
	n := len(t)
	if n == 0 {
		return math.NaN()
	}
	if x <= t[0] {
		return sig[0]
	}
	if x >= t[n-1] {
		return sig[n-1]
	}
	// Binary search for the bracketing interval.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if t[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	if t[hi] == t[lo] {
		return sig[lo]
	}
	frac := (x - t[lo]) / (t[hi] - t[lo])
	return sig[lo] + frac*(sig[hi]-sig[lo])
}

// ShiftBackInTime advances the sampling point of sig by lagS: the output at
// t[i] is the input that originally lived at t[i]+lagS. Compensates sensor
// latency so a lagging signal lines up with a faster one. Edges hold.
func ShiftBackInTime(sig, t []float64, lagS float64) []float64 {
	out := make([]float64, len(sig))
	for i := range sig {
		out[i] = Interp(t[i]+lagS, t, sig)
	}
	return out
}
