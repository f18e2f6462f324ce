package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/laptimer"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/store"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // pit-lane LAN only
	},
}

// lapHub fans lap and status events out to every connected browser.
type lapHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newLapHub() *lapHub {
	return &lapHub{clients: make(map[*websocket.Conn]bool)}
}

func (h *lapHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *lapHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// broadcast writes payload to every client, dropping any that error.
func (h *lapHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

// wsEvent is one message pushed to the browsers.
type wsEvent struct {
	Type     string        `json:"type"` // "lap" or "status"
	Lap      *laptimer.Lap `json:"lap,omitempty"`
	CurrentS *float64      `json:"current_s,omitempty"`
	SpeedMPH float64       `json:"speed_mph,omitempty"`
	LapCount int           `json:"lap_count,omitempty"`
	Best     *laptimer.Lap `json:"best,omitempty"`
}

// lapState is the mutex-guarded state shared between the MQTT callback and
// the HTTP handlers.
type lapState struct {
	mu     sync.Mutex
	timer  *laptimer.Timer
	gate   laptimer.Gate
	minLap float64
	lastT  float64
	latest telemetry.Record
	have   bool
}

// advance feeds one telemetry record to the timer. A timestamp jumping
// backwards means the logger restarted, so the lap sequence starts over.
func (s *lapState) advance(rec telemetry.Record) (laptimer.Lap, bool) {
	tS := float64(rec.TimestampMS) / 1000.0

	s.mu.Lock()
	defer s.mu.Unlock()

	if tS < s.lastT {
		log.Printf("laptimer: session restarted (t %.1fs -> %.1fs), resetting laps", s.lastT, tS)
		s.timer = laptimer.NewTimer(s.gate, s.minLap)
	}
	s.lastT = tS
	s.latest = rec
	s.have = true

	// No fix yet: the logger writes zero lat/lon until the receiver locks.
	if rec.Lat == 0 && rec.Lon == 0 {
		return laptimer.Lap{}, false
	}
	return s.timer.Advance(tS, rec.Lat, rec.Lon)
}

// status returns the fields the live page shows between lap events.
func (s *lapState) status() wsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := wsEvent{Type: "status", LapCount: len(s.timer.Laps())}
	if s.have {
		ev.SpeedMPH = s.latest.SpeedMPH
		if cur, ok := s.timer.Current(s.lastT); ok {
			ev.CurrentS = &cur
		}
	}
	if best, ok := s.timer.Best(); ok {
		ev.Best = &best
	}
	return ev
}

func (s *lapState) laps() []laptimer.Lap {
	s.mu.Lock()
	defer s.mu.Unlock()
	laps := make([]laptimer.Lap, len(s.timer.Laps()))
	copy(laps, s.timer.Laps())
	return laps
}

// sessionSummary is one row of the /api/history response.
type sessionSummary struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
	Samples   int       `json:"samples"`
	DurationS float64   `json:"duration_s"`
	BestS     *float64  `json:"best_s,omitempty"`
}

// RunLapTimer is the pit-side daemon: it watches the live telemetry stream
// for start/finish gate crossings, pushes lap times to connected browsers
// over websockets, and serves past sessions from the session database.
func RunLapTimer() error {
	cfg := config.Get()
	log.Println("starting lap timer")

	if !cfg.HasStartGate() {
		return fmt.Errorf("lap timing needs START_LAT and START_LON in the config")
	}

	gate := laptimer.NewGate(cfg.StartLat, cfg.StartLon, cfg.StartRadiusM)
	state := &lapState{
		timer:  laptimer.NewTimer(gate, cfg.MinLapTimeS),
		gate:   gate,
		minLap: cfg.MinLapTimeS,
	}
	hub := newLapHub()

	// Past sessions are served read-only; a missing database just means no
	// history yet.
	var db *store.DB
	if d, err := store.Open(cfg.SessionDB); err != nil {
		log.Printf("laptimer: session database unavailable: %v", err)
	} else {
		db = d
		defer db.Close()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDLapTimer)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("laptimer: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rec telemetry.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Printf("laptimer: telemetry unmarshal error: %v", err)
			return
		}
		lap, done := state.advance(rec)
		if !done {
			return
		}
		log.Printf("laptimer: lap %d  %.2f s", lap.Number, lap.TimeS)

		payload, err := json.Marshal(lap)
		if err != nil {
			return
		}
		client.Publish(cfg.TopicLaps, 0, false, payload)
		if evt, err := json.Marshal(wsEvent{Type: "lap", Lap: &lap}); err == nil {
			hub.broadcast(evt)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe error: %w", token.Error())
	}
	log.Printf("laptimer: subscribed to %s", cfg.TopicTelemetry)
	log.Printf("laptimer: gate at %.6f, %.6f radius %.1f m, min lap %.1f s",
		cfg.StartLat, cfg.StartLon, cfg.StartRadiusM, cfg.MinLapTimeS)

	// Status frames keep the current-lap clock on the page moving.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if payload, err := json.Marshal(state.status()); err == nil {
				hub.broadcast(payload)
			}
		}
	}()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("laptimer: websocket upgrade error: %v", err)
			return
		}
		hub.add(conn)
		// Browsers never send anything; the read loop just detects close.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	http.HandleFunc("/api/laps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Laps []laptimer.Lap `json:"laps"`
			Best *laptimer.Lap  `json:"best,omitempty"`
		}{Laps: state.laps()}
		state.mu.Lock()
		if best, ok := state.timer.Best(); ok {
			resp.Best = &best
		}
		state.mu.Unlock()
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("laptimer: json encode error: %v", err)
		}
	})

	http.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			http.Error(w, "no session database", http.StatusServiceUnavailable)
			return
		}
		sessions, err := db.Sessions()
		if err != nil {
			log.Printf("laptimer: session query error: %v", err)
			http.Error(w, "session query failed", http.StatusInternalServerError)
			return
		}
		out := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			row := sessionSummary{
				ID:        s.ID,
				UUID:      s.UUID,
				StartedAt: s.StartedAt,
				Source:    s.Source,
				Samples:   s.Samples,
				DurationS: s.DurationS,
			}
			if best, ok, err := db.BestLap(s.ID); err == nil && ok {
				row.BestS = &best.TimeS
			}
			out = append(out, row)
		}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("laptimer: json encode error: %v", err)
		}
	})

	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("laptimer: web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
