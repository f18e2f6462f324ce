package gps

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// statusActive is the RMC validity flag for a usable fix.
const statusActive = "A"

// ReaderConfig selects the serial port the receiver is wired to.
type ReaderConfig struct {
	PortName string
	BaudRate uint
}

// Watch opens the GPS serial port, parses NMEA sentences, and delivers every
// RMC fix to onFix until ctx is done or the port fails. Invalid fixes are
// delivered too, with Valid false, so consumers see the receiver drop out.
func Watch(ctx context.Context, cfg ReaderConfig, onFix func(Fix)) error {
	serialOpts := serial.OpenOptions{
		PortName:        cfg.PortName,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gps: opening %s: %w", cfg.PortName, err)
	}
	log.Printf("gps: serial port open on %s at %d baud", cfg.PortName, cfg.BaudRate)

	// The blocking read only unblocks when the port closes, so cancellation
	// closes it out from under the reader.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gps: reading %s: %w", cfg.PortName, err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// Partial sentences show up at startup and across buffer seams.
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			onFix(FixFromRMC(sentence.(nmea.RMC)))
		}
	}
}

// FixFromRMC converts a parsed RMC sentence to a Fix.
func FixFromRMC(m nmea.RMC) Fix {
	valid := string(m.Validity) == statusActive
	return Fix{
		Time:        rmcTime(m),
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		SpeedKnots:  m.Speed,
		CourseDeg:   m.Course,
		Valid:       valid,
		CourseValid: valid && m.Speed >= minCourseKnots,
	}
}

// rmcTime combines the RMC date and time fields into a UTC timestamp. RMC
// years are two digits; the receiver is not going to see 2100.
func rmcTime(m nmea.RMC) time.Time {
	if !m.Date.Valid || !m.Time.Valid {
		return time.Time{}
	}
	return time.Date(
		2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
		m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond),
		time.UTC,
	)
}
