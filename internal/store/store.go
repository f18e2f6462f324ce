// Package store keeps analyzed sessions and their lap times in SQLite so
// runs can be compared across race days without re-parsing the CSV logs.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/laptimer"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE,
			started_at TEXT,
			source TEXT,
			samples INTEGER,
			duration_s DOUBLE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS laps (
			lap_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER,
			lap INTEGER,
			start_s DOUBLE,
			end_s DOUBLE,
			time_s DOUBLE,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}

	return &DB{db}, nil
}

// Session is one logged run. UUID is assigned on insert when empty.
type Session struct {
	ID        int64
	UUID      string
	StartedAt time.Time
	Source    string
	Samples   int
	DurationS float64
}

// InsertSession records a run and returns its id.
func (db *DB) InsertSession(s Session) (int64, error) {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	res, err := db.Exec(
		"INSERT INTO sessions (uuid, started_at, source, samples, duration_s) VALUES (?, ?, ?, ?, ?)",
		s.UUID, s.StartedAt.UTC().Format(time.RFC3339Nano), s.Source, s.Samples, s.DurationS,
	)
	if err != nil {
		return 0, fmt.Errorf("store: inserting session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: session id: %w", err)
	}
	return id, nil
}

// InsertLaps records a session's laps in one transaction.
func (db *DB) InsertLaps(sessionID int64, laps []laptimer.Lap) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	for _, lap := range laps {
		_, err := tx.Exec(
			"INSERT INTO laps (session_id, lap, start_s, end_s, time_s) VALUES (?, ?, ?, ?, ?)",
			sessionID, lap.Number, lap.StartS, lap.EndS, lap.TimeS,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("store: inserting lap %d: %w", lap.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Sessions lists runs, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		"SELECT session_id, uuid, started_at, source, samples, duration_s FROM sessions ORDER BY started_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s       Session
			started string
		)
		if err := rows.Scan(&s.ID, &s.UUID, &started, &s.Source, &s.Samples, &s.DurationS); err != nil {
			return nil, err
		}
		s.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("store: session %d started_at: %w", s.ID, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Laps returns a session's laps in running order.
func (db *DB) Laps(sessionID int64) ([]laptimer.Lap, error) {
	rows, err := db.Query(
		"SELECT lap, start_s, end_s, time_s FROM laps WHERE session_id = ? ORDER BY lap",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var laps []laptimer.Lap
	for rows.Next() {
		var lap laptimer.Lap
		if err := rows.Scan(&lap.Number, &lap.StartS, &lap.EndS, &lap.TimeS); err != nil {
			return nil, err
		}
		laps = append(laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return laps, nil
}

// BestLap returns a session's fastest lap, or ok=false when it has none.
func (db *DB) BestLap(sessionID int64) (laptimer.Lap, bool, error) {
	var lap laptimer.Lap
	err := db.QueryRow(
		"SELECT lap, start_s, end_s, time_s FROM laps WHERE session_id = ? ORDER BY time_s ASC LIMIT 1",
		sessionID,
	).Scan(&lap.Number, &lap.StartS, &lap.EndS, &lap.TimeS)
	if err == sql.ErrNoRows {
		return laptimer.Lap{}, false, nil
	}
	if err != nil {
		return laptimer.Lap{}, false, err
	}
	return lap, true, nil
}
