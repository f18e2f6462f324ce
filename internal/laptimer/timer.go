package laptimer

// Lap is one completed circuit between two gate entries.
type Lap struct {
	Number int     `json:"lap"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	TimeS  float64 `json:"time_s"`
}

// Timer turns a position stream into lap times. Feed it every sample in
// order; it detects outside-to-inside gate transitions and interpolates the
// crossing instant between the two samples straddling the circle, so timing
// resolution is better than the GPS update rate.
//
// Every crossing becomes the reference for the next lap. Intervals shorter
// than the minimum are discarded as gate noise (a car parked on the line,
// GPS scatter re-entering the circle) but still move the reference, matching
// how the analysis tooling counts laps offline.
type Timer struct {
	gate    Gate
	minLapS float64

	havePrev   bool
	prevT      float64
	prevD      float64
	insidePrev bool

	haveCross  bool
	lastCrossT float64

	laps []Lap
	best int // index into laps, -1 when empty
}

func NewTimer(gate Gate, minLapS float64) *Timer {
	return &Timer{gate: gate, minLapS: minLapS, best: -1}
}

// Advance feeds one position sample at time tS (seconds, any monotonic
// base). It returns the completed lap and true when this sample closes one.
func (t *Timer) Advance(tS, lat, lon float64) (Lap, bool) {
	d := t.gate.DistanceM(lat, lon)
	inside := d <= t.gate.radiusM

	if !t.havePrev {
		t.havePrev = true
		t.prevT, t.prevD, t.insidePrev = tS, d, inside
		return Lap{}, false
	}

	entered := inside && !t.insidePrev
	var crossT float64
	if entered {
		crossT = interpolateCrossing(t.prevT, t.prevD, tS, d, t.gate.radiusM)
	}
	t.prevT, t.prevD, t.insidePrev = tS, d, inside
	if !entered {
		return Lap{}, false
	}

	if !t.haveCross {
		t.haveCross = true
		t.lastCrossT = crossT
		return Lap{}, false
	}

	lapTime := crossT - t.lastCrossT
	start := t.lastCrossT
	t.lastCrossT = crossT
	if lapTime < t.minLapS {
		return Lap{}, false
	}

	lap := Lap{
		Number: len(t.laps) + 1,
		StartS: start,
		EndS:   crossT,
		TimeS:  lapTime,
	}
	t.laps = append(t.laps, lap)
	if t.best < 0 || lap.TimeS < t.laps[t.best].TimeS {
		t.best = len(t.laps) - 1
	}
	return lap, true
}

// interpolateCrossing estimates when the track crossed the gate radius
// between two samples, by linear interpolation on distance.
func interpolateCrossing(tA, dA, tB, dB, radiusM float64) float64 {
	if dA == dB {
		return tB
	}
	ratio := (dA - radiusM) / (dA - dB)
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return tA + ratio*(tB-tA)
}

// Laps returns all completed laps in order.
func (t *Timer) Laps() []Lap { return t.laps }

// Best returns the fastest lap so far.
func (t *Timer) Best() (Lap, bool) {
	if t.best < 0 {
		return Lap{}, false
	}
	return t.laps[t.best], true
}

// Current returns the running time of the lap in progress at tS, and false
// if the car has not yet crossed the gate.
func (t *Timer) Current(tS float64) (float64, bool) {
	if !t.haveCross {
		return 0, false
	}
	return tS - t.lastCrossT, true
}
