// Package tach counts driveshaft tachometer pulses from a GPIO edge stream
// and converts pulse counts to RPM. The counter is written from the edge
// goroutine and snapshotted by the logging loop, so every field is a single
// atomic word; snapshot-and-reset uses atomic swaps and can never observe a
// torn multi-word value.
package tach

import "sync/atomic"

// Counter accumulates pulses between snapshots.
type Counter struct {
	pulses     atomic.Uint32
	minDtMicro atomic.Uint32
	lastEdgeNS atomic.Int64
}

// Snapshot is the state captured (and reset) once per logging interval.
type Snapshot struct {
	// Pulses seen since the previous snapshot.
	Pulses uint32
	// MinDtMicro is the smallest interval between two pulses in the window,
	// in microseconds. Zero means fewer than two pulses were seen. The
	// minimum spacing catches contact bounce and ignition noise that a bare
	// count would average away.
	MinDtMicro uint32
}

// Pulse records one edge at the given monotonic timestamp in nanoseconds.
// Safe to call from exactly one goroutine (the edge pump); Snapshot may run
// concurrently from another.
func (c *Counter) Pulse(nowNS int64) {
	last := c.lastEdgeNS.Swap(nowNS)
	c.pulses.Add(1)
	if last == 0 {
		return
	}
	dt := (nowNS - last) / 1000
	if dt <= 0 || dt > int64(^uint32(0)) {
		return
	}
	dtMicro := uint32(dt)
	for {
		cur := c.minDtMicro.Load()
		if cur != 0 && dtMicro >= cur {
			return
		}
		if c.minDtMicro.CompareAndSwap(cur, dtMicro) {
			return
		}
	}
}

// Snapshot returns the window's counts and resets them. The pulse count and
// the minimum spacing are swapped independently; a pulse landing between the
// two swaps moves to the next window, which is harmless at logging rates.
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{
		Pulses:     c.pulses.Swap(0),
		MinDtMicro: c.minDtMicro.Swap(0),
	}
}
