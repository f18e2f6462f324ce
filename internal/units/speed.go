// Package units provides speed conversions between the units used across
// the telemetry pipeline: GPS receivers report knots, the log format and
// driver-facing displays use mph, and distance math works in meters/second.
package units

// Conversion factors
const (
	KnotsPerMPH = 0.868976241901
	MPHPerKnot  = 1.15077944802
	MPHPerMPS   = 2.2369362920544
)

// KnotsToMPH converts a speed in knots to miles per hour.
func KnotsToMPH(knots float64) float64 {
	return knots * MPHPerKnot
}

// MPHToKnots converts a speed in miles per hour to knots.
func MPHToKnots(mph float64) float64 {
	return mph * KnotsPerMPH
}

// MPSToMPH converts a speed in meters per second to miles per hour.
func MPSToMPH(mps float64) float64 {
	return mps * MPHPerMPS
}

// MPHToMPS converts a speed in miles per hour to meters per second.
func MPHToMPS(mph float64) float64 {
	return mph / MPHPerMPS
}
