package fusion

import (
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/gps"
)

// HeadingMode is the state of the heading fuser.
type HeadingMode int

const (
	// ModeUninitialized: yaw integrates from an arbitrary origin; no GPS
	// course has been accepted yet.
	ModeUninitialized HeadingMode = iota
	// ModeGyroOnly: yaw was initialized from GPS but the correction gates
	// did not pass this cycle, so the estimate rides on integration alone.
	ModeGyroOnly
	// ModeGPSCorrected: all four gates passed and the fused yaw was nudged
	// toward the GPS course this cycle.
	ModeGPSCorrected
)

func (m HeadingMode) String() string {
	switch m {
	case ModeUninitialized:
		return "uninitialized"
	case ModeGyroOnly:
		return "gyro-only"
	case ModeGPSCorrected:
		return "gps-corrected"
	default:
		return "unknown"
	}
}

// Flag returns the yaw_mode value recorded in the log: 1 when GPS-corrected,
// 0 otherwise.
func (m HeadingMode) Flag() int {
	if m == ModeGPSCorrected {
		return 1
	}
	return 0
}

// Gates is the result of evaluating the four GPS-trust conditions for one
// cycle. All four must hold for course-over-ground to correct the gyro yaw.
type Gates struct {
	CourseValid bool // receiver reports a usable course this cycle
	SpeedOK     bool // fast enough for course-over-ground to be stable
	LatAccelOK  bool // not cornering hard (slip angle would decouple course from heading)
	YawRateOK   bool // not rotating fast
}

// AllPass reports whether every gate holds.
func (g Gates) AllPass() bool {
	return g.CourseValid && g.SpeedOK && g.LatAccelOK && g.YawRateOK
}

// Gates evaluates the four GPS-trust conditions. latAccelG is the filtered
// lateral (body Y) acceleration in g; yawRateDPS the raw yaw rate in deg/s.
func (t Thresholds) Gates(fix gps.Fix, latAccelG, yawRateDPS float64) Gates {
	return Gates{
		CourseValid: fix.CourseValid,
		SpeedOK:     fix.SpeedMPH() > t.SpeedMinMPH,
		LatAccelOK:  abs(latAccelG) < t.LatAccelGateG,
		YawRateOK:   abs(yawRateDPS) < t.YawRateGateDPS,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// HeadingFuser owns the yaw estimates. yawGyro is always pure integration of
// the Z gyro rate (wrapped to [0,360)); it is written from outside exactly
// once, when the first trustworthy GPS course snaps the origin. yawFused is
// yawGyro pulled proportionally toward the GPS course whenever all four gates
// pass, and equal to yawGyro otherwise. The gates are re-evaluated every
// cycle with no hysteresis.
type HeadingFuser struct {
	thr      Thresholds
	mode     HeadingMode
	yawGyro  float64
	yawFused float64
}

// NewHeadingFuser returns a fuser in ModeUninitialized with yaw at 0.
func NewHeadingFuser(thr Thresholds) *HeadingFuser {
	return &HeadingFuser{thr: thr}
}

// Update advances the fuser by one cycle. yawRateDPS is the raw Z gyro rate
// in deg/s, dt the elapsed seconds (sanitized via ClampDt), fix the latest
// GPS fix, latAccelG the filtered body-Y acceleration in g. Returns the
// fused yaw in [0, 360).
func (h *HeadingFuser) Update(yawRateDPS, dt float64, fix gps.Fix, latAccelG float64) float64 {
	dt = ClampDt(dt)
	h.yawGyro = Wrap360(h.yawGyro + yawRateDPS*dt)

	if h.mode == ModeUninitialized {
		if fix.CourseValid && fix.SpeedMPH() > h.thr.SpeedInitMPH {
			// Hard snap: at low speed moving roughly straight, course
			// over ground is the best absolute heading available.
			h.yawGyro = Wrap360(fix.CourseDeg)
			h.yawFused = h.yawGyro
			h.mode = ModeGyroOnly
		} else {
			h.yawFused = h.yawGyro
		}
		return h.yawFused
	}

	if h.thr.Gates(fix, latAccelG, yawRateDPS).AllPass() {
		diff := Wrap180(fix.CourseDeg - h.yawGyro)
		h.yawFused = Wrap360(h.yawGyro + h.thr.CorrectionGain*diff)
		h.mode = ModeGPSCorrected
	} else {
		h.yawFused = h.yawGyro
		h.mode = ModeGyroOnly
	}
	return h.yawFused
}

// YawGyro returns the pure-integration yaw estimate in [0, 360).
func (h *HeadingFuser) YawGyro() float64 { return h.yawGyro }

// YawFused returns the fused yaw estimate in [0, 360).
func (h *HeadingFuser) YawFused() float64 { return h.yawFused }

// Mode returns the fuser state after the last Update.
func (h *HeadingFuser) Mode() HeadingMode { return h.mode }
