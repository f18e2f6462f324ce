package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/gps"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/laptimer"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/tach"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

// RunConsole subscribes to the live topics and prints a one-line summary at
// the configured interval, plus every lap as it completes. Pit crew tool; the
// full-rate stream stays in the CSV.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	var (
		mu      sync.Mutex
		rec     telemetry.Record
		haveRec bool
		fix     gps.Fix
		haveFix bool
	)

	telemToken := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r telemetry.Record
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: telemetry unmarshal error: %v", err)
			return
		}
		mu.Lock()
		rec = r
		haveRec = true
		mu.Unlock()
	})
	telemToken.Wait()
	if telemToken.Error() != nil {
		return telemToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTelemetry)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}
		mu.Lock()
		fix = f
		haveFix = true
		mu.Unlock()
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	lapToken := client.Subscribe(cfg.TopicLaps, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var lap laptimer.Lap
		if err := json.Unmarshal(msg.Payload(), &lap); err != nil {
			log.Printf("console: lap unmarshal error: %v", err)
			return
		}
		fmt.Printf("[LAP ]  lap %d completed in %.2f s\n", lap.Number, lap.TimeS)
	})
	lapToken.Wait()
	if lapToken.Error() != nil {
		return lapToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicLaps)

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	loopS := float64(cfg.LoopInterval) / 1000.0
	rpmSmooth := tach.NewSmoother(0.2)
	for {
		select {
		case <-sigCh:
			log.Println("console: shutting down")
			client.Disconnect(250)
			return nil

		case <-ticker.C:
			mu.Lock()
			r, okRec := rec, haveRec
			f, okFix := fix, haveFix
			mu.Unlock()

			if !okRec {
				fmt.Println("[TELEM] waiting for data...")
				continue
			}

			mode := "gyro"
			if r.YawMode == 1 {
				mode = "gps"
			}
			fmt.Printf("[TELEM] t=%8.1fs  roll=%+6.1f pitch=%+6.1f yaw=%6.1f (%s)  a=(%+.2f %+.2f %+.2f)g  %5.1f mph",
				float64(r.TimestampMS)/1000.0,
				r.RollDeg, r.PitchDeg, r.YawDeg, mode,
				r.AccelX, r.AccelY, r.AccelZ,
				r.SpeedMPH,
			)
			if r.TachPulses > 0 {
				fmt.Printf("  %5.0f rpm", rpmSmooth.Update(tach.RPM(r.TachPulses, loopS, cfg.PulsesPerRev)))
			}
			fmt.Println()

			if okFix {
				valid := "void"
				if f.Valid {
					valid = "active"
				}
				fmt.Printf("[GPS ]  %s  lat=%9.6f lon=%11.6f  %5.1f kn  course=%5.1f° (%s)\n",
					f.Time.Format("15:04:05.000"), f.Latitude, f.Longitude,
					f.SpeedKnots, f.CourseDeg, valid,
				)
			}
		}
	}
}
