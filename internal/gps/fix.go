package gps

import (
	"time"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/units"
)

// Fix is a single decoded GPS fix suitable for JSON and MQTT. Validity is
// tracked per field: position and speed come from the RMC status flag, while
// course-over-ground is additionally meaningless below walking pace (most
// receivers emit 0 or noise when nearly stationary).
type Fix struct {
	Time        time.Time `json:"time"`         // fix wall time (UTC from RMC when available)
	Latitude    float64   `json:"lat"`          // decimal degrees
	Longitude   float64   `json:"lon"`          // decimal degrees
	SpeedKnots  float64   `json:"speed_knots"`  // speed over ground
	CourseDeg   float64   `json:"course_deg"`   // course over ground, compass degrees
	Valid       bool      `json:"valid"`        // position and speed usable
	CourseValid bool      `json:"course_valid"` // course usable
}

// minCourseKnots is the speed below which course-over-ground is discarded.
const minCourseKnots = 0.5

// SpeedMPH returns the ground speed in miles per hour.
func (f Fix) SpeedMPH() float64 {
	return units.KnotsToMPH(f.SpeedKnots)
}
