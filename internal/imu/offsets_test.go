package imu

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "offsets.json")
	want := Offsets{
		AxBias: 0.0213, AyBias: -0.0057, AzBias: 0.0411,
		GxBias: 0.83, GyBias: -1.21, GzBias: 0.07,
	}
	require.NoError(t, SaveOffsets(path, want))

	got, createdAt, err := LoadOffsets(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, createdAt.IsZero())
}

func TestLoadOffsetsMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := LoadOffsets(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestCalibratedSourceAppliesOffsets(t *testing.T) {
	t.Parallel()

	raw := Sample{Ax: 0.12, Ay: -0.05, Az: 1.03, Gx: 1.0, Gy: 2.0, Gz: 3.0}
	src := NewCalibratedSource(
		&ScriptSource{Samples: []Sample{raw}},
		Offsets{AxBias: 0.02, AyBias: -0.05, AzBias: 0.03, GxBias: 1.0, GyBias: 2.0, GzBias: 3.0},
	)

	s, err := src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 0.10, s.Ax, 1e-12)
	assert.InDelta(t, 0.0, s.Ay, 1e-12)
	assert.InDelta(t, 1.0, s.Az, 1e-12)
	assert.InDelta(t, 0.0, s.Gx, 1e-12)
	assert.InDelta(t, 0.0, s.Gy, 1e-12)
	assert.InDelta(t, 0.0, s.Gz, 1e-12)
}

func TestCalibratedSourcePropagatesError(t *testing.T) {
	t.Parallel()

	src := NewCalibratedSource(&ScriptSource{}, Offsets{})
	_, err := src.Read()
	assert.Error(t, err)
}
