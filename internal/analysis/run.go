package analysis

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/fusion"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/laptimer"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

// Config tunes the replay pipeline. Defaults match the values the logs were
// collected under at the home track.
type Config struct {
	// HeadingSpeedThreshMPH gates GPS heading; below it course over ground
	// is scatter.
	HeadingSpeedThreshMPH float64
	// SlipSpeedThreshMPH gates the slip angle output.
	SlipSpeedThreshMPH float64
	// GPSHeadingLagS shifts GPS heading back in time to line up with yaw.
	GPSHeadingLagS float64

	HeadingSmoothAlpha float64
	YawSmoothAlpha     float64
	SlipSmoothAlpha    float64
	AccelSmoothAlpha   float64
	RPMSmoothAlpha     float64

	PulsesPerRev float64

	GateLat     float64
	GateLon     float64
	GateRadiusM float64
	MinLapTimeS float64
}

func DefaultConfig() Config {
	return Config{
		HeadingSpeedThreshMPH: 10.0,
		SlipSpeedThreshMPH:    25.0,
		GPSHeadingLagS:        0.4,
		HeadingSmoothAlpha:    0.10,
		YawSmoothAlpha:        0.05,
		SlipSmoothAlpha:       0.15,
		AccelSmoothAlpha:      0.20,
		RPMSmoothAlpha:        0.20,
		PulsesPerRev:          128.0,
		GateLat:               33.825590689244244,
		GateLon:               -118.28829968858749,
		GateRadiusM:           3.0,
		MinLapTimeS:           5.0,
	}
}

// Run is one fully analyzed session. Slices are sample-aligned with Records;
// gated signals hold NaN where they are not meaningful.
type Run struct {
	Records []telemetry.Record
	Layout  telemetry.Layout

	TimeS    []float64
	SpeedMPH []float64

	// HeadingDeg is the lag-compensated, smoothed GPS heading in
	// [-180, 180), NaN until the car first moves fast enough.
	HeadingDeg []float64

	// YawAlignedDeg is the on-board fused yaw mapped into the GPS frame.
	YawAlignedDeg []float64
	YawSign       float64
	YawOffsetDeg  float64

	AccelX    []float64
	AccelY    []float64
	AccelZ    []float64
	AccelMagG []float64

	// SlipDeg is yaw minus travel direction, only defined above the slip
	// speed threshold while the fusion was GPS-corrected.
	SlipDeg []float64

	// RPM is NaN wherever the tach saw no pulses.
	RPM []float64

	Laps      []laptimer.Lap
	DurationS float64
}

// LoadCSV reads a session log. Every row must use the same layout; a file
// that changes width mid-run is corrupt.
func LoadCSV(r io.Reader) ([]telemetry.Record, telemetry.Layout, error) {
	var (
		records []telemetry.Record
		layout  telemetry.Layout
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, l, err := telemetry.ParseRow(line)
		if err != nil {
			return nil, 0, fmt.Errorf("analysis: line %d: %w", lineNo, err)
		}
		if layout == 0 {
			layout = l
		} else if l != layout {
			return nil, 0, fmt.Errorf("analysis: line %d: layout changed from %d to %d columns", lineNo, layout.Columns(), l.Columns())
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("analysis: reading log: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("analysis: empty log")
	}
	return records, layout, nil
}

// Analyze runs the full replay pipeline over a session's records.
func Analyze(records []telemetry.Record, layout telemetry.Layout, cfg Config) (*Run, error) {
	n := len(records)
	if n == 0 {
		return nil, fmt.Errorf("analysis: no records")
	}

	t := make([]float64, n)
	speed := make([]float64, n)
	yawMode := make([]int, n)
	yawGPS := make([]float64, n)
	yawBody := make([]float64, n)
	ax := make([]float64, n)
	ay := make([]float64, n)
	az := make([]float64, n)
	lat := make([]float64, n)
	lon := make([]float64, n)
	pulses := make([]float64, n)
	for i, r := range records {
		t[i] = float64(r.TimestampMS) / 1000.0
		speed[i] = r.SpeedMPH
		yawMode[i] = r.YawMode
		yawGPS[i] = r.YawGPSDeg
		yawBody[i] = r.YawDeg
		ax[i] = r.AccelX
		ay[i] = r.AccelY
		az[i] = r.AccelZ
		lat[i] = r.Lat
		lon[i] = r.Lon
		pulses[i] = float64(r.TachPulses)
	}

	// GPS heading: trust course over ground only at speed, carry the last
	// trusted value through slow sections, then compensate receiver lag.
	heading := make([]float64, n)
	for i := range heading {
		if speed[i] >= cfg.HeadingSpeedThreshMPH {
			heading[i] = yawGPS[i]
		} else {
			heading[i] = math.NaN()
		}
	}
	heading = ForwardFill(heading)
	heading = ShiftBackInTime(heading, t, cfg.GPSHeadingLagS)

	headingUnwrapped := EMA(UnwrapDeg(heading), cfg.HeadingSmoothAlpha)
	headingDeg := make([]float64, n)
	for i := range headingDeg {
		headingDeg[i] = fusion.Wrap180(headingUnwrapped[i])
	}

	// Body yaw into the GPS frame.
	yawUnwrapped := UnwrapDeg(yawBody)
	alignedRaw, sign, offset := alignYawToHeading(yawUnwrapped, headingUnwrapped, speed, cfg.HeadingSpeedThreshMPH)
	aligned := EMA(alignedRaw, cfg.YawSmoothAlpha)
	yawAlignedDeg := make([]float64, n)
	for i := range yawAlignedDeg {
		yawAlignedDeg[i] = fusion.Wrap180(aligned[i])
	}

	axF := EMA(ax, cfg.AccelSmoothAlpha)
	ayF := EMA(ay, cfg.AccelSmoothAlpha)
	azF := EMA(az, cfg.AccelSmoothAlpha)
	accMag := make([]float64, n)
	for i := range accMag {
		accMag[i] = math.Sqrt(axF[i]*axF[i] + ayF[i]*ayF[i] + azF[i]*azF[i])
	}

	// Slip angle: aligned yaw minus travel direction, gated to samples where
	// the car is fast and the fusion was actually tracking GPS.
	slip := make([]float64, n)
	for i := range slip {
		if speed[i] >= cfg.SlipSpeedThreshMPH && yawMode[i] == 1 {
			slip[i] = fusion.Wrap180(aligned[i] - headingUnwrapped[i])
		} else {
			slip[i] = math.NaN()
		}
	}
	slip = smoothWithGaps(slip, cfg.SlipSmoothAlpha)

	// RPM from pulse counts per sample interval.
	rpm := make([]float64, n)
	for i := range rpm {
		var dt float64
		switch {
		case i > 0:
			dt = t[i] - t[i-1]
		case n > 1:
			dt = t[1] - t[0]
		}
		if dt <= 0 || pulses[i] <= 0 {
			rpm[i] = math.NaN()
			continue
		}
		rpm[i] = (pulses[i] / dt) * 60.0 / cfg.PulsesPerRev
	}
	rpm = smoothWithGaps(rpm, cfg.RPMSmoothAlpha)

	timer := laptimer.NewTimer(laptimer.NewGate(cfg.GateLat, cfg.GateLon, cfg.GateRadiusM), cfg.MinLapTimeS)
	for i := range t {
		timer.Advance(t[i], lat[i], lon[i])
	}

	return &Run{
		Records:       records,
		Layout:        layout,
		TimeS:         t,
		SpeedMPH:      speed,
		HeadingDeg:    headingDeg,
		YawAlignedDeg: yawAlignedDeg,
		YawSign:       sign,
		YawOffsetDeg:  offset,
		AccelX:        axF,
		AccelY:        ayF,
		AccelZ:        azF,
		AccelMagG:     accMag,
		SlipDeg:       slip,
		RPM:           rpm,
		Laps:          timer.Laps(),
		DurationS:     t[n-1] - t[0],
	}, nil
}

// smoothWithGaps low-passes a gated signal: gaps are forward-filled so the
// filter state carries across them, then restored to NaN afterwards.
func smoothWithGaps(x []float64, alpha float64) []float64 {
	anyFinite := false
	for _, v := range x {
		if !math.IsNaN(v) {
			anyFinite = true
			break
		}
	}
	if !anyFinite {
		return x
	}
	smooth := EMA(ForwardFill(x), alpha)
	for i := range smooth {
		if math.IsNaN(x[i]) {
			smooth[i] = math.NaN()
		}
	}
	return smooth
}
