// Package telemetry defines the per-cycle record produced by the fusion loop
// and its CSV wire format. The CSV layout is load-bearing: existing session
// logs and the analysis tooling both depend on the exact column order and
// numeric precision, so the encoder is byte-exact and the decoder accepts
// every layout revision ever written.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one fusion cycle's output. Acceleration is the low-passed body
// vector in g, angles are degrees, yaw fields are compass convention
// [0, 360).
type Record struct {
	TimestampMS int64   `json:"timestamp_ms"`
	AccelX      float64 `json:"accel_x_g"`
	AccelY      float64 `json:"accel_y_g"`
	AccelZ      float64 `json:"accel_z_g"`
	RollDeg     float64 `json:"roll_deg"`
	PitchDeg    float64 `json:"pitch_deg"`
	YawDeg      float64 `json:"yaw_deg"`
	YawGyroDeg  float64 `json:"yaw_gyro_deg"`
	YawMagDeg   float64 `json:"yaw_mag_deg"`
	YawGPSDeg   float64 `json:"yaw_gps_deg"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	SpeedMPH    float64 `json:"speed_mph"`
	YawMode     int     `json:"yaw_mode"`

	// Present from layout LayoutTach on.
	TachPulses  uint32 `json:"tach_pulses"`
	TachMinDtUS uint32 `json:"tach_min_dt_us"`

	// Present from layout LayoutThrottle on.
	ThrottlePct float64 `json:"throttle_pct"`
}

// Layout is the number of CSV columns a log revision carries.
type Layout int

const (
	// LayoutBase is the original 14-column log: no tach, no throttle.
	LayoutBase Layout = 14
	// LayoutTach appends tach_pulses and tach_min_dt_us.
	LayoutTach Layout = 16
	// LayoutThrottle appends throttle_pct after the tach columns.
	LayoutThrottle Layout = 17
)

// LayoutFor picks the layout for the sensors a run has. Throttle logging
// implies the tach columns so that only the three known widths ever exist;
// a tachless run with throttle writes zero pulse counts.
func LayoutFor(tach, throttle bool) Layout {
	switch {
	case throttle:
		return LayoutThrottle
	case tach:
		return LayoutTach
	default:
		return LayoutBase
	}
}

// Columns returns the column count.
func (l Layout) Columns() int { return int(l) }

// AppendCSV appends the record as one CSV row (no trailing newline) and
// returns the extended slice. Column order and precision match the
// historical log format: accel 3 dp, angles and speed 1 dp, lat/lon 6 dp.
func (r Record) AppendCSV(dst []byte, layout Layout) []byte {
	dst = fmt.Appendf(dst, "%d,%.3f,%.3f,%.3f,%.1f,%.1f,%.1f,%.1f,%.1f,%.1f,%.6f,%.6f,%.1f,%d",
		r.TimestampMS,
		r.AccelX, r.AccelY, r.AccelZ,
		r.RollDeg, r.PitchDeg,
		r.YawDeg, r.YawGyroDeg, r.YawMagDeg, r.YawGPSDeg,
		r.Lat, r.Lon,
		r.SpeedMPH,
		r.YawMode,
	)
	if layout >= LayoutTach {
		dst = fmt.Appendf(dst, ",%d,%d", r.TachPulses, r.TachMinDtUS)
	}
	if layout >= LayoutThrottle {
		dst = fmt.Appendf(dst, ",%.1f", r.ThrottlePct)
	}
	return dst
}

// CSVRow renders the record as a string. Convenience wrapper over AppendCSV.
func (r Record) CSVRow(layout Layout) string {
	return string(r.AppendCSV(nil, layout))
}

// ParseRow decodes one CSV row in any of the known layouts. The returned
// layout reports which revision the row came from; absent columns stay zero.
func ParseRow(line string) (Record, Layout, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")

	var layout Layout
	switch len(fields) {
	case int(LayoutBase):
		layout = LayoutBase
	case int(LayoutTach):
		layout = LayoutTach
	case int(LayoutThrottle):
		layout = LayoutThrottle
	default:
		return Record{}, 0, fmt.Errorf("telemetry: row has %d columns, want 14, 16, or 17", len(fields))
	}

	var (
		r   Record
		err error
	)
	r.TimestampMS, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, 0, fmt.Errorf("telemetry: timestamp_ms: %w", err)
	}

	floats := []struct {
		dst  *float64
		name string
		idx  int
	}{
		{&r.AccelX, "accel_x_g", 1},
		{&r.AccelY, "accel_y_g", 2},
		{&r.AccelZ, "accel_z_g", 3},
		{&r.RollDeg, "roll_deg", 4},
		{&r.PitchDeg, "pitch_deg", 5},
		{&r.YawDeg, "yaw_deg", 6},
		{&r.YawGyroDeg, "yaw_gyro_deg", 7},
		{&r.YawMagDeg, "yaw_mag_deg", 8},
		{&r.YawGPSDeg, "yaw_gps_deg", 9},
		{&r.Lat, "lat", 10},
		{&r.Lon, "lon", 11},
		{&r.SpeedMPH, "speed_mph", 12},
	}
	for _, f := range floats {
		*f.dst, err = strconv.ParseFloat(fields[f.idx], 64)
		if err != nil {
			return Record{}, 0, fmt.Errorf("telemetry: %s: %w", f.name, err)
		}
	}

	r.YawMode, err = strconv.Atoi(fields[13])
	if err != nil {
		return Record{}, 0, fmt.Errorf("telemetry: yaw_mode: %w", err)
	}

	if layout >= LayoutTach {
		pulses, err := strconv.ParseUint(fields[14], 10, 32)
		if err != nil {
			return Record{}, 0, fmt.Errorf("telemetry: tach_pulses: %w", err)
		}
		minDt, err := strconv.ParseUint(fields[15], 10, 32)
		if err != nil {
			return Record{}, 0, fmt.Errorf("telemetry: tach_min_dt_us: %w", err)
		}
		r.TachPulses = uint32(pulses)
		r.TachMinDtUS = uint32(minDt)
	}
	if layout >= LayoutThrottle {
		r.ThrottlePct, err = strconv.ParseFloat(fields[16], 64)
		if err != nil {
			return Record{}, 0, fmt.Errorf("telemetry: throttle_pct: %w", err)
		}
	}
	return r, layout, nil
}
