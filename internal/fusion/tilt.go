package fusion

import "math"

// tiltEpsilon guards the tilt computation against a near-zero acceleration
// vector, which has no usable direction.
const tiltEpsilon = 1e-6

// TiltFromAccel computes roll and pitch in degrees from an acceleration
// vector assumed to be dominated by gravity (Z up, 1 g at rest):
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
//
// Only valid under low-dynamic conditions; the complementary filter gates
// on that before trusting the result. If the vector magnitude is below
// tiltEpsilon the previous angles are the best available and ok is false.
func TiltFromAccel(ax, ay, az float64) (roll, pitch float64, ok bool) {
	if math.Sqrt(ax*ax+ay*ay+az*az) < tiltEpsilon {
		return 0, 0, false
	}

	roll = math.Atan2(ay, az) * 180.0 / math.Pi
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * 180.0 / math.Pi
	return roll, pitch, true
}
