package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/fusion"
)

// alignYawToHeading resolves the mirror/offset ambiguity between the
// on-board yaw estimate and GPS heading. The IMU's yaw sign depends on how
// the board is mounted, and its zero is wherever the gyro happened to start
// integrating; neither is knowable from the log alone. Both candidates
// (yaw and -yaw) are offset by their circular-mean difference to the GPS
// heading over the fast samples, and the one with the tighter residual wins.
//
// Inputs are unwrapped (continuous) degrees. Returns the aligned unwrapped
// yaw, the chosen sign, and the constant offset that was subtracted.
func alignYawToHeading(yawUnwrapped, headingUnwrapped, speedMPH []float64, speedThreshMPH float64) ([]float64, float64, float64) {
	var idx []int
	for i := range yawUnwrapped {
		if speedMPH[i] >= speedThreshMPH && !math.IsNaN(headingUnwrapped[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		out := make([]float64, len(yawUnwrapped))
		copy(out, yawUnwrapped)
		return out, 1.0, 0.0
	}

	var (
		bestErr    = math.Inf(1)
		bestSign   = 1.0
		bestOffset = 0.0
		bestYaw    []float64
	)
	for _, sign := range []float64{1.0, -1.0} {
		// Circular mean of the signed difference to GPS heading.
		var sumSin, sumCos float64
		for _, i := range idx {
			d := fusion.Wrap180(sign*yawUnwrapped[i] - headingUnwrapped[i])
			rad := d * math.Pi / 180.0
			sumSin += math.Sin(rad)
			sumCos += math.Cos(rad)
		}
		offset := math.Atan2(sumSin/float64(len(idx)), sumCos/float64(len(idx))) * 180.0 / math.Pi

		aligned := make([]float64, len(yawUnwrapped))
		for i := range yawUnwrapped {
			aligned[i] = sign*yawUnwrapped[i] - offset
		}

		residual := make([]float64, len(idx))
		for j, i := range idx {
			residual[j] = fusion.Wrap180(aligned[i] - headingUnwrapped[i])
		}
		err := stat.StdDev(residual, nil)
		if math.IsNaN(err) {
			// A single usable sample has no spread; any offset fits.
			err = 0
		}

		if err < bestErr {
			bestErr = err
			bestSign = sign
			bestOffset = offset
			bestYaw = aligned
		}
	}
	return bestYaw, bestSign, bestOffset
}
