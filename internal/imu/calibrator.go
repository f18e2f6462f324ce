package imu

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Calibrator measures stationary sensor bias by averaging a window of raw
// samples. The car must be stationary and level for the whole window; that
// is an operator instruction, not something the calibrator can verify. The
// per-axis standard deviations in the report give the operator a chance to
// spot a window that was disturbed.
type Calibrator struct {
	// Samples is the size of the averaging window.
	Samples int
	// Discard samples are read and thrown away first, letting the sensor's
	// internal filters settle after power-on.
	Discard int
	// Interval is the delay between consecutive reads.
	Interval time.Duration
}

// Report is the outcome of a calibration run.
type Report struct {
	Offsets Offsets

	// Noise over the averaging window, per axis.
	AccelStdDev [3]float64
	GyroStdDev  [3]float64

	Samples int
}

// Run reads Discard+Samples samples from src and computes the bias offsets:
// accel bias is the per-axis mean, with 1 g subtracted from Z so a level car
// reads (0, 0, 1) after correction; gyro bias is the per-axis mean, assuming
// zero true rotation. A read failure aborts the run: starting a session with
// a partly-sampled calibration would silently skew every row that follows.
func (c Calibrator) Run(src Source) (Report, error) {
	if c.Samples <= 0 {
		return Report{}, fmt.Errorf("calibration window must be positive, got %d", c.Samples)
	}

	for i := 0; i < c.Discard; i++ {
		if _, err := src.Read(); err != nil {
			return Report{}, fmt.Errorf("calibration settle read %d failed: %w", i, err)
		}
		time.Sleep(c.Interval)
	}

	ax := make([]float64, 0, c.Samples)
	ay := make([]float64, 0, c.Samples)
	az := make([]float64, 0, c.Samples)
	gx := make([]float64, 0, c.Samples)
	gy := make([]float64, 0, c.Samples)
	gz := make([]float64, 0, c.Samples)

	for i := 0; i < c.Samples; i++ {
		s, err := src.Read()
		if err != nil {
			return Report{}, fmt.Errorf("calibration read %d failed: %w", i, err)
		}
		ax = append(ax, s.Ax)
		ay = append(ay, s.Ay)
		az = append(az, s.Az)
		gx = append(gx, s.Gx)
		gy = append(gy, s.Gy)
		gz = append(gz, s.Gz)
		time.Sleep(c.Interval)
	}

	rep := Report{
		Offsets: Offsets{
			AxBias: stat.Mean(ax, nil),
			AyBias: stat.Mean(ay, nil),
			AzBias: stat.Mean(az, nil) - 1.0, // gravity reads 1 g on Z when level
			GxBias: stat.Mean(gx, nil),
			GyBias: stat.Mean(gy, nil),
			GzBias: stat.Mean(gz, nil),
		},
		AccelStdDev: [3]float64{stat.StdDev(ax, nil), stat.StdDev(ay, nil), stat.StdDev(az, nil)},
		GyroStdDev:  [3]float64{stat.StdDev(gx, nil), stat.StdDev(gy, nil), stat.StdDev(gz, nil)},
		Samples:     c.Samples,
	}
	return rep, nil
}
