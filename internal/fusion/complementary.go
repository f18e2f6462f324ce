package fusion

import "math"

// OrientationFilter fuses gyro-integrated roll/pitch with the accelerometer
// tilt reference. Short-term motion comes from the gyro; the accel reference
// bleeds in slowly (1-Beta per step) to cancel integration drift, and only
// while the car is not accelerating hard enough to corrupt the tilt estimate.
//
// The filter starts uninitialized and seeds itself from the first usable
// accel tilt, so power-on attitude is correct without waiting for the blend
// to converge.
type OrientationFilter struct {
	thr         Thresholds
	roll        float64
	pitch       float64
	initialized bool
}

// NewOrientationFilter returns an uninitialized filter.
func NewOrientationFilter(thr Thresholds) *OrientationFilter {
	return &OrientationFilter{thr: thr}
}

// LowDynamic reports whether the filtered acceleration vector is close enough
// to 1 g for the tilt estimate to be trustworthy.
func (f *OrientationFilter) LowDynamic(ax, ay, az float64) bool {
	mag := math.Sqrt(ax*ax + ay*ay + az*az)
	return math.Abs(mag-1.0) <= f.thr.AccelToleranceG
}

// Update advances the filter by one cycle. ax/ay/az are the low-pass filtered
// acceleration in g, gx/gy the roll and pitch rates in deg/s, dt the elapsed
// seconds since the previous update (sanitized via ClampDt). Returns the new
// roll and pitch in degrees.
func (f *OrientationFilter) Update(ax, ay, az, gx, gy, dt float64) (roll, pitch float64) {
	rollAcc, pitchAcc, tiltOK := TiltFromAccel(ax, ay, az)

	if !f.initialized {
		if tiltOK {
			f.roll = rollAcc
			f.pitch = pitchAcc
			f.initialized = true
		}
		return f.roll, f.pitch
	}

	dt = ClampDt(dt)
	rollGyro := f.roll + gx*dt
	pitchGyro := f.pitch + gy*dt

	if tiltOK && f.LowDynamic(ax, ay, az) {
		f.roll = f.thr.Beta*rollGyro + (1-f.thr.Beta)*rollAcc
		f.pitch = f.thr.Beta*pitchGyro + (1-f.thr.Beta)*pitchAcc
	} else {
		// Cornering, braking or a degenerate accel vector: the tilt
		// reference is lying, ride the gyro until dynamics settle.
		f.roll = rollGyro
		f.pitch = pitchGyro
	}

	return f.roll, f.pitch
}

// Roll returns the current filtered roll in degrees.
func (f *OrientationFilter) Roll() float64 { return f.roll }

// Pitch returns the current filtered pitch in degrees.
func (f *OrientationFilter) Pitch() float64 { return f.pitch }

// Initialized reports whether the filter has seeded from a first tilt fix.
func (f *OrientationFilter) Initialized() bool { return f.initialized }
