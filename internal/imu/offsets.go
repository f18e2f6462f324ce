package imu

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Offsets holds the per-axis biases measured with the car stationary and
// level. AzBias already has the 1 g of gravity removed, so applying the
// offsets to a level, stationary sample yields (0, 0, 1, 0, 0, 0). Computed
// once at startup; immutable afterwards.
type Offsets struct {
	AxBias float64 `json:"ax_bias"`
	AyBias float64 `json:"ay_bias"`
	AzBias float64 `json:"az_bias"`
	GxBias float64 `json:"gx_bias"`
	GyBias float64 `json:"gy_bias"`
	GzBias float64 `json:"gz_bias"`
}

// Apply returns s with the biases subtracted.
func (o Offsets) Apply(s Sample) Sample {
	s.Ax -= o.AxBias
	s.Ay -= o.AyBias
	s.Az -= o.AzBias
	s.Gx -= o.GxBias
	s.Gy -= o.GyBias
	s.Gz -= o.GzBias
	return s
}

type offsetsFile struct {
	CreatedAt time.Time `json:"created_at"`
	Offsets   Offsets   `json:"offsets"`
}

// SaveOffsets writes the offsets to a JSON file so a session's calibration
// can be reviewed after the fact.
func SaveOffsets(path string, o Offsets) error {
	data, err := json.MarshalIndent(offsetsFile{CreatedAt: time.Now().UTC(), Offsets: o}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode offsets: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write offsets file: %w", err)
	}
	return nil
}

// LoadOffsets reads offsets saved by SaveOffsets and reports when they were
// taken.
func LoadOffsets(path string) (Offsets, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Offsets{}, time.Time{}, fmt.Errorf("failed to read offsets file: %w", err)
	}
	var f offsetsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Offsets{}, time.Time{}, fmt.Errorf("failed to decode offsets file: %w", err)
	}
	return f.Offsets, f.CreatedAt, nil
}
