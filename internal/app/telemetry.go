// Package app wires the sensor, fusion, logging and network layers into the
// runnable daemons behind each binary under cmd/.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/datalog"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/fusion"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/gps"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/imu"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/sensors"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/tach"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/telemetry"
)

// maxIMUFailures is how many consecutive failed IMU reads the loop tolerates
// before giving up. One second at the default loop rate: past that the bus is
// gone, not glitching, and a logger without its IMU has nothing left to log.
const maxIMUFailures = 100

func thresholdsFromConfig(cfg *config.Config) fusion.Thresholds {
	return fusion.Thresholds{
		Beta:            cfg.FilterBeta,
		AccelAlpha:      cfg.AccelLPFAlpha,
		AccelToleranceG: cfg.AccelToleranceG,
		SpeedInitMPH:    cfg.GPSSpeedInitMPH,
		SpeedMinMPH:     cfg.GPSSpeedMinMPH,
		LatAccelGateG:   cfg.LatAccelGateG,
		YawRateGateDPS:  cfg.YawRateGateDPS,
		CorrectionGain:  cfg.GPSCorrectionGain,
	}
}

func mpuOptsFromConfig(cfg *config.Config) sensors.MPU9250Opts {
	return sensors.MPU9250Opts{
		Addr:          cfg.IMUI2CAddr,
		AccelRange:    int(cfg.IMUAccelRange),
		GyroRange:     int(cfg.IMUGyroRange),
		DLPF:          cfg.IMUDLPFConfig,
		AccelDLPF:     cfg.IMUAccelDLPF,
		SampleRateDiv: cfg.IMUSampleRateDiv,
	}
}

// loadOrCalibrate returns the bias offsets for this run. With recalibrate
// set, or when no offsets file exists yet, it runs a fresh stationary
// calibration and persists the result; otherwise it reloads the saved file.
// The car must be stationary and level while calibration runs.
func loadOrCalibrate(cfg *config.Config, src imu.Source, recalibrate bool) (imu.Offsets, error) {
	if !recalibrate {
		off, savedAt, err := imu.LoadOffsets(cfg.OffsetsFile)
		if err == nil {
			log.Printf("telemetry: using offsets from %s (saved %s)",
				cfg.OffsetsFile, savedAt.Format(time.RFC3339))
			log.Printf("telemetry: accel bias g    ax=%+.4f ay=%+.4f az=%+.4f", off.AxBias, off.AyBias, off.AzBias)
			log.Printf("telemetry: gyro bias deg/s gx=%+.4f gy=%+.4f gz=%+.4f", off.GxBias, off.GyBias, off.GzBias)
			return off, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("telemetry: offsets file unreadable, recalibrating: %v", err)
		}
	}

	log.Printf("telemetry: calibrating, keep the car still (%d samples)", cfg.CalibrationSamples)
	cal := imu.Calibrator{
		Samples:  cfg.CalibrationSamples,
		Discard:  cfg.CalibrationDiscard,
		Interval: time.Duration(cfg.LoopInterval) * time.Millisecond,
	}
	rep, err := cal.Run(src)
	if err != nil {
		return imu.Offsets{}, fmt.Errorf("calibration failed: %w", err)
	}

	o := rep.Offsets
	log.Printf("telemetry: accel bias g    ax=%+.4f ay=%+.4f az=%+.4f", o.AxBias, o.AyBias, o.AzBias)
	log.Printf("telemetry: gyro bias deg/s gx=%+.4f gy=%+.4f gz=%+.4f", o.GxBias, o.GyBias, o.GzBias)
	log.Printf("telemetry: accel noise stddev %.4f %.4f %.4f, gyro %.4f %.4f %.4f",
		rep.AccelStdDev[0], rep.AccelStdDev[1], rep.AccelStdDev[2],
		rep.GyroStdDev[0], rep.GyroStdDev[1], rep.GyroStdDev[2])

	if err := imu.SaveOffsets(cfg.OffsetsFile, o); err != nil {
		log.Printf("telemetry: could not save offsets: %v", err)
	}
	return o, nil
}

// RunTelemetry is the on-car logging daemon: it calibrates (or reloads
// offsets), then runs the fusion loop at the configured rate, writing every
// cycle to the session CSV and publishing a subsampled live stream over MQTT.
// With mock set, a synthetic IMU replaces the hardware and the GPS, tach and
// throttle are skipped, so the fusion, logging and MQTT stack can run on a
// desk.
func RunTelemetry(recalibrate, mock bool) error {
	cfg := config.Get()
	log.Println("starting telemetry logger")

	var (
		src imu.Source
		bus i2c.BusCloser
	)
	if mock {
		log.Println("telemetry: synthetic IMU source (no hardware)")
		src = imu.NewSineSource()
	} else {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph: %w", err)
		}
		b, err := i2creg.Open(cfg.IMUI2CBus)
		if err != nil {
			return fmt.Errorf("failed to open I2C bus: %w", err)
		}
		defer b.Close()
		bus = b

		mpu, err := sensors.NewMPU9250(bus, mpuOptsFromConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to initialize IMU: %w", err)
		}

		offsets, err := loadOrCalibrate(cfg, mpu, recalibrate)
		if err != nil {
			return err
		}
		src = imu.NewCalibratedSource(mpu, offsets)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTelemetry)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("telemetry: connected to MQTT broker at %s", cfg.MQTTBroker)

	// GPS runs on its own goroutine; the fusion loop only ever sees the
	// latest fix. Losing the GPS degrades heading to gyro-only, it does not
	// stop the logger.
	gpsStore := &gps.Store{}
	if !mock {
		go func() {
			readerCfg := gps.ReaderConfig{
				PortName: cfg.GPSSerialPort,
				BaudRate: uint(cfg.GPSBaudRate),
			}
			err := gps.Watch(ctx, readerCfg, func(fix gps.Fix) {
				gpsStore.Set(fix)
				payload, err := json.Marshal(fix)
				if err != nil {
					return
				}
				client.Publish(cfg.TopicGPS, 0, true, payload)
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("gps: reader stopped: %v", err)
			}
		}()
	}

	var counter *tach.Counter
	if !mock && cfg.TachEnabled() {
		counter = &tach.Counter{}
		go func() {
			if err := tach.Watch(ctx, cfg.TachGPIOPin, counter); err != nil && ctx.Err() == nil {
				log.Printf("tach: edge watcher stopped: %v", err)
			}
		}()
		log.Printf("telemetry: tach enabled on %s, %d pulses/rev", cfg.TachGPIOPin, cfg.PulsesPerRev)
	}

	var throttle *sensors.Throttle
	if !mock && cfg.ThrottleEnable {
		tp, err := sensors.NewThrottle(bus, sensors.ThrottleOpts{
			MinVolts: cfg.ThrottleMinVolts,
			MaxVolts: cfg.ThrottleMaxVolts,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize throttle ADC: %w", err)
		}
		defer tp.Halt()
		throttle = tp
	}

	start := time.Now()
	layout := telemetry.LayoutFor(cfg.TachEnabled(), cfg.ThrottleEnable)
	writer, err := datalog.Open(cfg.LogDir, start, layout, cfg.LogFlushRows)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	log.Printf("telemetry: logging %d-column rows to %s", layout.Columns(), writer.Path())

	thr := thresholdsFromConfig(cfg)
	lpf := fusion.NewLowPass(cfg.AccelLPFAlpha)
	orient := fusion.NewOrientationFilter(thr)
	fuser := fusion.NewHeadingFuser(thr)
	magHdg := fusion.NewMagHeading(cfg.MagDeclinationDeg)

	pubEvery := cfg.TelemetryPublishInterval / cfg.LoopInterval
	if pubEvery < 1 {
		pubEvery = 1
	}

	ticker := time.NewTicker(time.Duration(cfg.LoopInterval) * time.Millisecond)
	defer ticker.Stop()
	log.Println("telemetry: fusion loop running")

	var (
		lastTick    time.Time
		imuFailures int
		throttlePct float64
		yawMag      float64
		ticks       int
	)

	for {
		var t time.Time
		select {
		case <-ctx.Done():
			log.Println("telemetry: shutting down")
			if err := writer.Close(); err != nil {
				log.Printf("telemetry: closing session log: %v", err)
			}
			log.Printf("telemetry: wrote %d rows to %s", writer.Rows(), writer.Path())
			return nil
		case t = <-ticker.C:
		}

		dt := float64(cfg.LoopInterval) / 1000.0
		if !lastTick.IsZero() {
			dt = t.Sub(lastTick).Seconds()
		}

		sample, err := src.Read()
		if err != nil {
			imuFailures++
			if imuFailures >= maxIMUFailures {
				writer.Close()
				return fmt.Errorf("IMU unreadable for %d consecutive cycles: %w", imuFailures, err)
			}
			if imuFailures == 1 || imuFailures%25 == 0 {
				log.Printf("telemetry: IMU read failed (%d consecutive): %v", imuFailures, err)
			}
			// Hold all filter state; dt accumulates into the next good
			// sample and is clamped there.
			continue
		}
		imuFailures = 0
		lastTick = t
		ticks++

		axLPF, ayLPF, azLPF := lpf.Update(sample.Ax, sample.Ay, sample.Az)
		roll, pitch := orient.Update(axLPF, ayLPF, azLPF, sample.Gx, sample.Gy, dt)

		fix, _ := gpsStore.Latest()
		yawFused := fuser.Update(sample.Gz, dt, fix, ayLPF)

		mag, err := src.ReadMag()
		yawMag = magHdg.Update(roll, pitch, mag.Mx, mag.My, mag.Mz, err == nil)

		rec := telemetry.Record{
			TimestampMS: t.Sub(start).Milliseconds(),
			AccelX:      axLPF,
			AccelY:      ayLPF,
			AccelZ:      azLPF,
			RollDeg:     roll,
			PitchDeg:    pitch,
			YawDeg:      yawFused,
			YawGyroDeg:  fuser.YawGyro(),
			YawMagDeg:   yawMag,
			YawGPSDeg:   fix.CourseDeg,
			Lat:         fix.Latitude,
			Lon:         fix.Longitude,
			SpeedMPH:    fix.SpeedMPH(),
			YawMode:     fuser.Mode().Flag(),
		}
		if counter != nil {
			snap := counter.Snapshot()
			rec.TachPulses = snap.Pulses
			rec.TachMinDtUS = snap.MinDtMicro
		}
		if throttle != nil {
			if pct, err := throttle.Read(); err == nil {
				throttlePct = pct
			}
			rec.ThrottlePct = throttlePct
		}

		if err := writer.Write(rec); err != nil {
			log.Printf("telemetry: session log failed, continuing without it: %v", err)
		}

		if ticks%pubEvery == 0 {
			payload, err := json.Marshal(rec)
			if err != nil {
				log.Printf("telemetry: record marshal error: %v", err)
				continue
			}
			if token := client.Publish(cfg.TopicTelemetry, 0, true, payload); token.Wait() && token.Error() != nil {
				log.Printf("telemetry: MQTT publish error: %v", token.Error())
			}
		}
	}
}
