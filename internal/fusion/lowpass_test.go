package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowPassInitialState(t *testing.T) {
	t.Parallel()

	f := NewLowPass(0.2)
	x, y, z := f.Values()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
	assert.Equal(t, 1.0, z)
}

func TestLowPassSingleStep(t *testing.T) {
	t.Parallel()

	f := NewLowPass(0.2)
	x, y, z := f.Update(1.0, -0.5, 1.0)

	assert.InDelta(t, 0.2, x, 1e-12)
	assert.InDelta(t, -0.1, y, 1e-12)
	assert.InDelta(t, 1.0, z, 1e-12)
}

func TestLowPassConvergesToConstantInput(t *testing.T) {
	t.Parallel()

	f := NewLowPass(0.2)
	var x, y, z float64
	for i := 0; i < 200; i++ {
		x, y, z = f.Update(0.3, 0.1, 0.95)
	}

	assert.InDelta(t, 0.3, x, 1e-6)
	assert.InDelta(t, 0.1, y, 1e-6)
	assert.InDelta(t, 0.95, z, 1e-6)
}

func TestLowPassSmoothsSpike(t *testing.T) {
	t.Parallel()

	f := NewLowPass(0.2)
	for i := 0; i < 100; i++ {
		f.Update(0, 0, 1)
	}
	// One vibration spike should move the output by only alpha of the jump.
	x, _, _ := f.Update(2.0, 0, 1)
	assert.InDelta(t, 0.4, x, 1e-9)
}
