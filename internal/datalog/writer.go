// Package datalog persists telemetry records as one headerless CSV file per
// run. Storage failure never stops a run: the writer disables itself on the
// first error so the live stream and display keep working when the SD card
// dies mid-session.
package datalog

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

// Writer appends telemetry records to a CSV stream, flushing every
// flushEvery rows so a power cut loses at most one flush window.
type Writer struct {
	bw         *bufio.Writer
	closer     io.Closer
	layout     telemetry.Layout
	flushEvery int
	path       string

	buf      []byte
	rows     int
	unsynced int
	disabled bool
}

// New wraps an arbitrary stream. Open is the file-backed constructor.
func New(w io.Writer, layout telemetry.Layout, flushEvery int) *Writer {
	if flushEvery <= 0 {
		flushEvery = 1
	}
	dw := &Writer{
		bw:         bufio.NewWriter(w),
		layout:     layout,
		flushEvery: flushEvery,
	}
	if c, ok := w.(io.Closer); ok {
		dw.closer = c
	}
	return dw
}

// Open creates the run's log file under dir, named by the UTC start time.
func Open(dir string, start time.Time, layout telemetry.Layout, flushEvery int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datalog: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, "run_"+start.UTC().Format("20060102T150405Z")+".csv")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datalog: creating %s: %w", path, err)
	}
	w := New(f, layout, flushEvery)
	w.path = path
	return w, nil
}

// Path returns the log file path, empty for stream-backed writers.
func (w *Writer) Path() string { return w.path }

// Rows returns how many rows have been accepted.
func (w *Writer) Rows() int { return w.rows }

// Disabled reports whether a storage error has shut the writer down.
func (w *Writer) Disabled() bool { return w.disabled }

// Write appends one record. After the first storage error the writer logs,
// disables itself, and every later call becomes a no-op.
func (w *Writer) Write(rec telemetry.Record) error {
	if w.disabled {
		return nil
	}
	w.buf = rec.AppendCSV(w.buf[:0], w.layout)
	w.buf = append(w.buf, '\n')
	if _, err := w.bw.Write(w.buf); err != nil {
		return w.fail(err)
	}
	w.rows++
	w.unsynced++
	if w.unsynced >= w.flushEvery {
		if err := w.bw.Flush(); err != nil {
			return w.fail(err)
		}
		w.unsynced = 0
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file.
func (w *Writer) Close() error {
	if w.disabled {
		if w.closer != nil {
			w.closer.Close()
		}
		return nil
	}
	w.disabled = true
	if err := w.bw.Flush(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return fmt.Errorf("datalog: flushing %s: %w", w.path, err)
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("datalog: closing %s: %w", w.path, err)
		}
	}
	return nil
}

func (w *Writer) fail(err error) error {
	w.disabled = true
	log.Printf("datalog: write failed, logging disabled for this run: %v", err)
	if w.closer != nil {
		w.closer.Close()
	}
	return fmt.Errorf("datalog: writing row %d: %w", w.rows, err)
}
