package fusion

// LowPass smooths the 3-axis acceleration vector with a per-axis exponential
// moving average before it reaches the tilt computation. State starts at
// (0, 0, 1): gravity up, car at rest.
type LowPass struct {
	alpha   float64
	x, y, z float64
}

// NewLowPass returns a filter with the given EMA coefficient.
func NewLowPass(alpha float64) *LowPass {
	return &LowPass{alpha: alpha, x: 0, y: 0, z: 1}
}

// Update folds one raw acceleration sample (g) into the filter and returns
// the filtered vector.
func (f *LowPass) Update(ax, ay, az float64) (x, y, z float64) {
	f.x = f.alpha*ax + (1-f.alpha)*f.x
	f.y = f.alpha*ay + (1-f.alpha)*f.y
	f.z = f.alpha*az + (1-f.alpha)*f.z
	return f.x, f.y, f.z
}

// Values returns the current filtered vector without updating it.
func (f *LowPass) Values() (x, y, z float64) {
	return f.x, f.y, f.z
}
