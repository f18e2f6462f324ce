package fusion

import "math"

// MagHeading computes a tilt-compensated magnetic heading for cross-checking
// the fused yaw in the log. It is never fed back into the yaw estimate.
//
// On a failed magnetometer read the caller passes ok=false and the previous
// heading is reported again; holding the last value is the explicit policy,
// not an accident of uninitialized state.
type MagHeading struct {
	declinationDeg float64
	heading        float64
	have           bool
}

// NewMagHeading returns an estimator applying the given magnetic declination
// (degrees, positive east).
func NewMagHeading(declinationDeg float64) *MagHeading {
	return &MagHeading{declinationDeg: declinationDeg}
}

// Update computes the heading from roll/pitch (degrees) and a magnetic field
// sample (any consistent unit; only the direction matters). ok=false marks a
// failed read: the previous heading is returned unchanged. Returns the
// heading in [0, 360).
func (m *MagHeading) Update(rollDeg, pitchDeg, mx, my, mz float64, ok bool) float64 {
	if !ok {
		return m.heading
	}

	roll := rollDeg * math.Pi / 180.0
	pitch := pitchDeg * math.Pi / 180.0

	// Rotate the field into the horizontal plane.
	mxh := mx*math.Cos(pitch) + my*math.Sin(roll)*math.Sin(pitch) + mz*math.Cos(roll)*math.Sin(pitch)
	myh := my*math.Cos(roll) - mz*math.Sin(roll)

	m.heading = Wrap360(math.Atan2(-myh, mxh)*180.0/math.Pi + m.declinationDeg)
	m.have = true
	return m.heading
}

// Heading returns the last computed heading, and whether one exists yet.
func (m *MagHeading) Heading() (float64, bool) {
	return m.heading, m.have
}
