package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// ThrottleOpts maps the throttle position sensor's voltage span to percent.
type ThrottleOpts struct {
	// MinVolts is the TPS output at closed throttle.
	MinVolts float64
	// MaxVolts is the TPS output at wide open.
	MaxVolts float64
}

// DefaultThrottleOpts matches the stock TPS behind its divider.
func DefaultThrottleOpts() ThrottleOpts {
	return ThrottleOpts{MinVolts: 0.5, MaxVolts: 2.8}
}

// Throttle reads throttle position through an ADS1115 on channel 0.
type Throttle struct {
	pin  ads1x15.PinADC
	opts ThrottleOpts
}

func NewThrottle(bus i2c.Bus, opts ThrottleOpts) (*Throttle, error) {
	if opts.MaxVolts <= opts.MinVolts {
		return nil, fmt.Errorf("throttle: voltage span %.2f..%.2f V is empty", opts.MinVolts, opts.MaxVolts)
	}
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("throttle: ADS1115 init: %w", err)
	}
	pin, err := adc.PinForChannel(ads1x15.Channel0, 3300*physic.MilliVolt, 860*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("throttle: channel 0 setup: %w", err)
	}
	return &Throttle{pin: pin, opts: opts}, nil
}

// Read returns throttle position in percent, clamped to [0, 100]. On a bus
// error the caller holds its previous value.
func (t *Throttle) Read() (float64, error) {
	sample, err := t.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("throttle: reading ADC: %w", err)
	}
	volts := float64(sample.V) / float64(physic.Volt)
	return t.opts.percent(volts), nil
}

func (o ThrottleOpts) percent(volts float64) float64 {
	pct := (volts - o.MinVolts) / (o.MaxVolts - o.MinVolts) * 100.0
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Halt powers the ADC down.
func (t *Throttle) Halt() error {
	return t.pin.Halt()
}
