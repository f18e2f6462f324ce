// Package laptimer detects start/finish line crossings from the GPS track
// and keeps per-session lap times. The gate is a circle around the pit-wall
// timing point; a lap is the interval between consecutive entries into it.
package laptimer

import geo "github.com/kellydunn/golang-geo"

// Gate is the timing circle at the start/finish line.
type Gate struct {
	point   *geo.Point
	radiusM float64
}

func NewGate(lat, lon, radiusM float64) Gate {
	return Gate{point: geo.NewPoint(lat, lon), radiusM: radiusM}
}

// RadiusM returns the gate radius in meters.
func (g Gate) RadiusM() float64 { return g.radiusM }

// DistanceM returns the great-circle distance from a position to the gate
// center, in meters.
func (g Gate) DistanceM(lat, lon float64) float64 {
	return g.point.GreatCircleDistance(geo.NewPoint(lat, lon)) * 1000.0
}

// Inside reports whether a position is within the gate circle.
func (g Gate) Inside(lat, lon float64) bool {
	return g.DistanceM(lat, lon) <= g.radiusM
}
