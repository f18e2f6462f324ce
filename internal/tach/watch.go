package tach

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// edgeTimeout bounds WaitForEdge so the pump notices context cancellation
// even when the shaft is stopped.
const edgeTimeout = 500 * time.Millisecond

// Watch opens the named GPIO pin for rising edges and feeds the counter
// until ctx is done. It blocks; run it on its own goroutine.
func Watch(ctx context.Context, pinName string, c *Counter) error {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return fmt.Errorf("tach: no GPIO pin %q", pinName)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return fmt.Errorf("tach: configuring %s: %w", pinName, err)
	}
	log.Printf("tach: counting pulses on %s", pin)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if pin.WaitForEdge(edgeTimeout) {
			c.Pulse(time.Now().UnixNano())
		}
	}
}
