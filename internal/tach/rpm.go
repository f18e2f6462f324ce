package tach

// RPM converts a pulse count over an interval to engine revolutions per
// minute. pulsesPerRev is the tooth count of the trigger wheel (128 for the
// stock driveshaft collar).
func RPM(pulses uint32, intervalS float64, pulsesPerRev int) float64 {
	if intervalS <= 0 || pulsesPerRev <= 0 {
		return 0
	}
	pps := float64(pulses) / intervalS
	return pps * 60.0 / float64(pulsesPerRev)
}

// Smoother is a first-order low-pass over the RPM signal. A raw per-window
// count at 100 Hz only resolves RPM in coarse steps; smoothing recovers a
// usable value for the display and the live stream.
type Smoother struct {
	alpha float64
	rpm   float64
	have  bool
}

func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update folds one RPM reading in and returns the smoothed value.
func (s *Smoother) Update(rpm float64) float64 {
	if !s.have {
		s.rpm = rpm
		s.have = true
		return s.rpm
	}
	s.rpm = s.alpha*rpm + (1-s.alpha)*s.rpm
	return s.rpm
}

// Value returns the current smoothed RPM.
func (s *Smoother) Value() float64 { return s.rpm }
