// Package imu defines the calibrated sensor sample types, the source
// interface the fusion loop reads from, and the stationary bias calibration
// run at startup.
package imu

import "time"

// Sample is one scaled IMU reading: linear acceleration in g and angular
// rate in deg/s, in the body frame (X forward, Y left, Z up). Samples from
// a raw Source are not bias-corrected; wrap the source in CalibratedSource
// to subtract the startup offsets.
type Sample struct {
	Ax float64 `json:"ax"`
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`
	Gx float64 `json:"gx"`
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Timestamp time.Time `json:"timestamp"`
}

// MagSample is one magnetometer reading in microtesla, body frame.
type MagSample struct {
	Mx float64 `json:"mx"`
	My float64 `json:"my"`
	Mz float64 `json:"mz"`
}

// Source delivers scaled (but uncorrected) samples. Implementations: the
// MPU-9250 driver in internal/sensors, and ScriptSource for tests.
type Source interface {
	// Read returns the next accel/gyro sample. A transient bus fault is
	// returned as an error with no sample; the caller decides whether to
	// hold state or give up.
	Read() (Sample, error)

	// ReadMag returns the latest magnetometer field. Magnetometer failures
	// are expected (separate die on the same package, its own ready bit)
	// and must not disturb accel/gyro sampling.
	ReadMag() (MagSample, error)
}

// CalibratedSource wraps a raw Source and subtracts startup bias offsets
// from every accel/gyro sample. Magnetometer reads pass through untouched.
type CalibratedSource struct {
	src Source
	off Offsets
}

// NewCalibratedSource wraps src with the given offsets.
func NewCalibratedSource(src Source, off Offsets) *CalibratedSource {
	return &CalibratedSource{src: src, off: off}
}

// Read returns the next bias-corrected sample.
func (c *CalibratedSource) Read() (Sample, error) {
	s, err := c.src.Read()
	if err != nil {
		return Sample{}, err
	}
	return c.off.Apply(s), nil
}

// ReadMag passes through to the underlying source.
func (c *CalibratedSource) ReadMag() (MagSample, error) {
	return c.src.ReadMag()
}

// Offsets returns the offsets being applied.
func (c *CalibratedSource) Offsets() Offsets {
	return c.off
}
