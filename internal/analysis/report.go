package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Summary renders the human-readable session report printed after analysis.
func (r *Run) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "session: %.1f s, %d samples, %d-column log\n",
		r.DurationS, len(r.Records), r.Layout.Columns())
	fmt.Fprintf(&b, "yaw alignment: sign %+.0f, offset %.1f deg\n", r.YawSign, r.YawOffsetDeg)

	if len(r.Laps) == 0 {
		b.WriteString("laps: none detected\n")
	} else {
		times := make([]float64, len(r.Laps))
		best := 0
		for i, lap := range r.Laps {
			times[i] = lap.TimeS
			if lap.TimeS < times[best] {
				best = i
			}
		}
		fmt.Fprintf(&b, "laps: %d (best %.2f s, mean %.2f s)\n",
			len(r.Laps), times[best], stat.Mean(times, nil))
		for i, lap := range r.Laps {
			fmt.Fprintf(&b, "  lap %-3d %8.2f s", lap.Number, lap.TimeS)
			if i == best {
				b.WriteString("  (best)")
			}
			b.WriteByte('\n')
		}
	}

	if peak, ok := peakFinite(r.AccelMagG); ok {
		fmt.Fprintf(&b, "peak |a|: %.2f g\n", peak)
	}
	if peak, ok := peakFinite(r.RPM); ok {
		fmt.Fprintf(&b, "peak rpm: %.0f\n", peak)
	}
	if peak, ok := peakFinite(r.SpeedMPH); ok {
		fmt.Fprintf(&b, "peak speed: %.1f mph\n", peak)
	}
	return b.String()
}

func peakFinite(x []float64) (float64, bool) {
	peak := math.Inf(-1)
	found := false
	for _, v := range x {
		if !math.IsNaN(v) && v > peak {
			peak = v
			found = true
		}
	}
	return peak, found
}
