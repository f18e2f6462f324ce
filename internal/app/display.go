package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/laptimer"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

// displayData holds the latest values shown on the dash.
type displayData struct {
	mu sync.RWMutex

	rec     telemetry.Record
	haveRec bool

	lastLap laptimer.Lap
	bestLap laptimer.Lap
	lapSeen bool
}

// RunDisplay drives the SSD1306 dash display from the live MQTT stream.
// DISPLAY_CONTENT picks the screen: "laps" for the driver (current and best
// lap, speed), "telemetry" for sensor bring-up (attitude and accel).
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(cfg.IMUI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	if err := drawLines(dev, []string{"", "  Midget Car", "  Telemetry"}); err != nil {
		log.Printf("display: splash error: %v", err)
	}

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	telemToken := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r telemetry.Record
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("display: telemetry unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.rec = r
		data.haveRec = true
		data.mu.Unlock()
	})
	telemToken.Wait()
	if telemToken.Error() != nil {
		return telemToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicTelemetry)

	lapToken := client.Subscribe(cfg.TopicLaps, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var lap laptimer.Lap
		if err := json.Unmarshal(msg.Payload(), &lap); err != nil {
			log.Printf("display: lap unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.lastLap = lap
		if !data.lapSeen || lap.TimeS < data.bestLap.TimeS {
			data.bestLap = lap
		}
		data.lapSeen = true
		data.mu.Unlock()
	})
	lapToken.Wait()
	if lapToken.Error() != nil {
		return lapToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicLaps)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()
	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		rec, haveRec := data.rec, data.haveRec
		lastLap, bestLap, lapSeen := data.lastLap, data.bestLap, data.lapSeen
		data.mu.RUnlock()

		var lines []string
		switch cfg.DisplayContent {
		case "telemetry":
			lines = telemetryLines(rec, haveRec)
		default:
			lines = lapLines(rec, haveRec, lastLap, bestLap, lapSeen)
		}
		if err := drawLines(dev, lines); err != nil {
			log.Printf("display: draw error: %v", err)
		}
	}
	return nil
}

func lapLines(rec telemetry.Record, haveRec bool, last, best laptimer.Lap, lapSeen bool) []string {
	if !haveRec {
		return []string{"", "  Waiting for", "  telemetry..."}
	}

	// Running clock: time since the last gate crossing, or since power-on
	// until the first lap completes.
	tS := float64(rec.TimestampMS) / 1000.0
	current := tS
	if lapSeen {
		current = tS - last.EndS
	}

	lines := []string{
		fmt.Sprintf("CUR %7.1f s", current),
		fmt.Sprintf("SPD %5.1f mph", rec.SpeedMPH),
	}
	if lapSeen {
		lines = append(lines,
			fmt.Sprintf("L%-2d %7.2f s", last.Number, last.TimeS),
			fmt.Sprintf("BST %7.2f s", best.TimeS),
		)
	} else {
		lines = append(lines, "", "  no laps yet")
	}
	return lines
}

func telemetryLines(rec telemetry.Record, haveRec bool) []string {
	if !haveRec {
		return []string{"", "  Waiting for", "  telemetry..."}
	}
	return []string{
		fmt.Sprintf("R%+6.1f P%+6.1f", rec.RollDeg, rec.PitchDeg),
		fmt.Sprintf("YAW %6.1f m%d", rec.YawDeg, rec.YawMode),
		fmt.Sprintf("A %+.2f %+.2f", rec.AccelX, rec.AccelY),
		fmt.Sprintf("SPD %5.1f mph", rec.SpeedMPH),
	}
}

// drawLines renders up to four text rows on the 128x64 panel.
func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if line == "" {
			continue
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return dev.Draw(dev.Bounds(), img, image.Point{})
}
