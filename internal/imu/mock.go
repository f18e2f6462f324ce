package imu

import (
	"errors"
	"math"
	"time"
)

// ErrScriptExhausted is returned by a ScriptSource with an empty script.
var ErrScriptExhausted = errors.New("imu: script source has no samples")

// ScriptSource replays a fixed sequence of samples, holding the last one
// once the script runs out. Used by tests and the bench rig.
type ScriptSource struct {
	Samples []Sample
	Mags    []MagSample

	// MagErr, when set, makes every ReadMag call fail. Exercises the
	// hold-previous-heading path.
	MagErr error

	idx  int
	midx int
}

// Read returns the next scripted sample.
func (s *ScriptSource) Read() (Sample, error) {
	if len(s.Samples) == 0 {
		return Sample{}, ErrScriptExhausted
	}
	sample := s.Samples[s.idx]
	if s.idx < len(s.Samples)-1 {
		s.idx++
	}
	return sample, nil
}

// ReadMag returns the next scripted magnetometer sample.
func (s *ScriptSource) ReadMag() (MagSample, error) {
	if s.MagErr != nil {
		return MagSample{}, s.MagErr
	}
	if len(s.Mags) == 0 {
		return MagSample{}, ErrScriptExhausted
	}
	m := s.Mags[s.midx]
	if s.midx < len(s.Mags)-1 {
		s.midx++
	}
	return m, nil
}

// SineSource generates smooth synthetic motion for running the full pipeline
// without hardware (the logger's -mock mode): a gentle roll/pitch oscillation
// on top of gravity, and a slow constant yaw rate.
type SineSource struct {
	start time.Time
}

// NewSineSource returns a source that starts its motion at the current time.
func NewSineSource() *SineSource {
	return &SineSource{start: time.Now()}
}

// Read generates the sample for the current instant.
func (s *SineSource) Read() (Sample, error) {
	elapsed := time.Since(s.start).Seconds()
	return Sample{
		Ax:        0.05 * math.Sin(elapsed*0.7),
		Ay:        0.08 * math.Sin(elapsed),
		Az:        1.0,
		Gx:        4 * math.Cos(elapsed),
		Gy:        3 * math.Cos(elapsed*0.7),
		Gz:        10,
		Timestamp: time.Now(),
	}, nil
}

// ReadMag generates a field that rotates with the synthetic yaw.
func (s *SineSource) ReadMag() (MagSample, error) {
	elapsed := time.Since(s.start).Seconds()
	yaw := math.Mod(elapsed*10, 360) * math.Pi / 180
	return MagSample{
		Mx: 30 * math.Cos(yaw),
		My: -30 * math.Sin(yaw),
		Mz: -45,
	}, nil
}
