// Package fusion implements the sensor-fusion core: accelerometer low-pass
// filtering, tilt from gravity, the complementary roll/pitch filter, gyro yaw
// integration with gated GPS course correction, and the tilt-compensated
// magnetometer heading used for cross-checking the fused estimate.
package fusion

import "math"

// Wrap360 normalizes an angle in degrees to [0, 360).
func Wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// Wrap180 normalizes an angle in degrees to [-180, 180).
func Wrap180(deg float64) float64 {
	deg = math.Mod(deg+180.0, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg - 180.0
}

// AngleDiff returns the shortest signed difference a-b in degrees,
// in [-180, 180).
func AngleDiff(a, b float64) float64 {
	return Wrap180(a - b)
}
