package fusion

// Timing limits for the integration step. A dt outside (0, MaxDt] is replaced
// with NominalDt so a single stalled or glitched loop interval cannot corrupt
// the integrated angles.
const (
	MaxDt     = 0.1  // seconds
	NominalDt = 0.01 // seconds
)

// Thresholds holds the fusion tuning constants. Values are fixed at startup;
// nothing mutates them at runtime.
type Thresholds struct {
	// Beta is the complementary filter blend factor: weight given to the
	// gyro-integrated angle against the accelerometer tilt reference.
	Beta float64

	// AccelAlpha is the EMA coefficient of the acceleration low-pass filter.
	AccelAlpha float64

	// AccelToleranceG bounds how far the filtered acceleration magnitude may
	// deviate from 1 g while the accel tilt reference is still trusted.
	AccelToleranceG float64

	// SpeedInitMPH is the minimum GPS speed at which the heading fuser snaps
	// its initial yaw to the GPS course.
	SpeedInitMPH float64

	// SpeedMinMPH is the minimum GPS speed for course-over-ground to be
	// trusted as a heading correction source.
	SpeedMinMPH float64

	// LatAccelGateG rejects GPS correction while lateral acceleration
	// indicates the car is cornering (slip decouples course from heading).
	LatAccelGateG float64

	// YawRateGateDPS rejects GPS correction during rapid rotation.
	YawRateGateDPS float64

	// CorrectionGain is the proportional gain of the GPS heading nudge.
	CorrectionGain float64
}

// DefaultThresholds returns the tuning used on the car.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Beta:            0.98,
		AccelAlpha:      0.2,
		AccelToleranceG: 0.15,
		SpeedInitMPH:    5.0,
		SpeedMinMPH:     12.0,
		LatAccelGateG:   0.15,
		YawRateGateDPS:  25.0,
		CorrectionGain:  0.15,
	}
}

// ClampDt sanitizes a loop interval before integration. Non-positive or
// implausibly large intervals become NominalDt.
func ClampDt(dt float64) float64 {
	if dt <= 0 || dt > MaxDt {
		return NominalDt
	}
	return dt
}
