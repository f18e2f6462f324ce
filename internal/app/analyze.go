package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/analysis"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/store"
)

// sessionStart recovers the session start time, preferring the timestamp the
// logger put in the filename and falling back to file mtime minus duration.
func sessionStart(path string, durationS float64) time.Time {
	base := filepath.Base(path)
	if t, err := time.Parse("run_20060102T150405Z.csv", base); err == nil {
		return t
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().Add(-time.Duration(durationS * float64(time.Second)))
	}
	return time.Now().Add(-time.Duration(durationS * float64(time.Second)))
}

// RunAnalyze replays a session CSV through the analysis pipeline, prints the
// lap and signal summary, and (unless save is false) records the session and
// its laps in the session database.
func RunAnalyze(path string, save bool) error {
	cfg := config.Get()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	records, layout, err := analysis.LoadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Printf("analyze: %s: %d samples, %d-column layout", path, len(records), layout.Columns())

	acfg := analysis.DefaultConfig()
	if cfg.HasStartGate() {
		acfg.GateLat = cfg.StartLat
		acfg.GateLon = cfg.StartLon
	}
	acfg.GateRadiusM = cfg.StartRadiusM
	acfg.MinLapTimeS = cfg.MinLapTimeS
	acfg.PulsesPerRev = float64(cfg.PulsesPerRev)

	run, err := analysis.Analyze(records, layout, acfg)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Print(run.Summary())

	if !save {
		return nil
	}

	db, err := store.Open(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer db.Close()

	id, err := db.InsertSession(store.Session{
		StartedAt: sessionStart(path, run.DurationS),
		Source:    filepath.Base(path),
		Samples:   len(records),
		DurationS: run.DurationS,
	})
	if err != nil {
		return err
	}
	if err := db.InsertLaps(id, run.Laps); err != nil {
		return err
	}
	log.Printf("analyze: saved session %d with %d laps to %s", id, len(run.Laps), cfg.SessionDB)
	return nil
}
