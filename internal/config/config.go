package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDTelemetry string
	MQTTClientIDLapTimer  string
	MQTTClientIDConsole   string
	MQTTClientIDDisplay   string

	// Topics
	TopicTelemetry string
	TopicGPS       string
	TopicLaps      string

	// IMU Hardware
	IMUI2CBus  string // empty picks the platform default bus
	IMUI2CAddr uint16

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// IMU Sample Rate Configuration
	IMUDLPFConfig    byte // Digital Low Pass Filter configuration (0-7)
	IMUSampleRateDiv byte // Sample rate divider (output rate = internal rate / (1 + div))
	IMUAccelDLPF     byte // Accelerometer DLPF configuration (0-7)

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	LoopInterval             int // fusion loop period, milliseconds
	TelemetryPublishInterval int // live stream period, milliseconds
	ConsoleLogInterval       int // milliseconds

	// Calibration
	CalibrationSamples int
	CalibrationDiscard int
	OffsetsFile        string

	// Fusion constants
	FilterBeta        float64
	AccelLPFAlpha     float64
	AccelToleranceG   float64
	GPSSpeedInitMPH   float64
	GPSSpeedMinMPH    float64
	LatAccelGateG     float64
	YawRateGateDPS    float64
	GPSCorrectionGain float64
	MagDeclinationDeg float64

	// Datalog
	LogDir       string
	LogFlushRows int

	// Start/finish gate
	StartLat     float64
	StartLon     float64
	StartRadiusM float64
	MinLapTimeS  float64

	// Tachometer. An empty pin name disables the tach.
	TachGPIOPin  string
	PulsesPerRev int

	// Throttle position sensor
	ThrottleEnable   bool
	ThrottleMinVolts float64
	ThrottleMaxVolts float64

	// Lap timer web server
	WebServerPort int

	// Display
	DisplayContent        string // "laps" or "telemetry"
	DisplayUpdateInterval int    // milliseconds

	// Session database
	SessionDB string
}

// newDefault returns a Config carrying every tunable's default. The file
// only has to name the hardware it cannot guess: the broker and the GPS
// port.
func newDefault() *Config {
	return &Config{
		MQTTClientIDTelemetry: "midget-telemetry",
		MQTTClientIDLapTimer:  "midget-laptimer",
		MQTTClientIDConsole:   "midget-console",
		MQTTClientIDDisplay:   "midget-display",

		TopicTelemetry: "midget/telemetry",
		TopicGPS:       "midget/gps",
		TopicLaps:      "midget/laps",

		IMUI2CAddr:       0x68,
		IMUAccelRange:    2,
		IMUGyroRange:     2,
		IMUDLPFConfig:    3,
		IMUSampleRateDiv: 9,
		IMUAccelDLPF:     3,

		GPSBaudRate: 9600,

		LoopInterval:             10,
		TelemetryPublishInterval: 100,
		ConsoleLogInterval:       1000,

		CalibrationSamples: 500,
		CalibrationDiscard: 100,
		OffsetsFile:        "imu_offsets.json",

		FilterBeta:        0.98,
		AccelLPFAlpha:     0.2,
		AccelToleranceG:   0.15,
		GPSSpeedInitMPH:   5,
		GPSSpeedMinMPH:    12,
		LatAccelGateG:     0.15,
		YawRateGateDPS:    25,
		GPSCorrectionGain: 0.15,

		LogDir:       "logs",
		LogFlushRows: 50,

		StartRadiusM: 3,
		MinLapTimeS:  5,

		PulsesPerRev: 128,

		ThrottleMinVolts: 0.5,
		ThrottleMaxVolts: 2.8,

		WebServerPort: 8081,

		DisplayContent:        "laps",
		DisplayUpdateInterval: 500,

		SessionDB: "sessions.db",
	}
}

// Package-level unexported variables for the config singleton. External
// code must use InitGlobal() to set and Get() to read; the RWMutex lets
// every goroutine read concurrently after initialization.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := newDefault()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TELEMETRY":
		c.MQTTClientIDTelemetry = value
	case "MQTT_CLIENT_ID_LAPTIMER":
		c.MQTTClientIDLapTimer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_LAPS":
		c.TopicLaps = value

	// IMU Hardware
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", value, err)
		}
		c.IMUI2CAddr = uint16(addr)

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// IMU Sample Rate Configuration
	case "IMU_DLPF_CFG":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_DLPF_CFG %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("IMU_DLPF_CFG must be 0-7, got %d", val)
		}
		c.IMUDLPFConfig = byte(val)
	case "IMU_SMPLRT_DIV":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SMPLRT_DIV %q: %w", value, err)
		}
		if val < 0 || val > 255 {
			return fmt.Errorf("IMU_SMPLRT_DIV must be 0-255, got %d", val)
		}
		c.IMUSampleRateDiv = byte(val)
	case "IMU_ACCEL_DLPF":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_DLPF %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("IMU_ACCEL_DLPF must be 0-7, got %d", val)
		}
		c.IMUAccelDLPF = byte(val)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "LOOP_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOOP_INTERVAL %q: %w", value, err)
		}
		c.LoopInterval = interval
	case "TELEMETRY_PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_PUBLISH_INTERVAL %q: %w", value, err)
		}
		c.TelemetryPublishInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Calibration
	case "CALIBRATION_SAMPLES":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		c.CalibrationSamples = val
	case "CALIBRATION_DISCARD":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_DISCARD %q: %w", value, err)
		}
		c.CalibrationDiscard = val
	case "OFFSETS_FILE":
		c.OffsetsFile = value

	// Fusion constants
	case "FILTER_BETA":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FILTER_BETA %q: %w", value, err)
		}
		if val < 0 || val > 1 {
			return fmt.Errorf("FILTER_BETA must be in [0,1], got %g", val)
		}
		c.FilterBeta = val
	case "ACCEL_LPF_ALPHA":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_LPF_ALPHA %q: %w", value, err)
		}
		if val <= 0 || val > 1 {
			return fmt.Errorf("ACCEL_LPF_ALPHA must be in (0,1], got %g", val)
		}
		c.AccelLPFAlpha = val
	case "ACCEL_TOLERANCE_G":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_TOLERANCE_G %q: %w", value, err)
		}
		c.AccelToleranceG = val
	case "GPS_SPEED_INIT_MPH":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_SPEED_INIT_MPH %q: %w", value, err)
		}
		c.GPSSpeedInitMPH = val
	case "GPS_SPEED_MIN_MPH":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_SPEED_MIN_MPH %q: %w", value, err)
		}
		c.GPSSpeedMinMPH = val
	case "LAT_ACCEL_GATE_G":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid LAT_ACCEL_GATE_G %q: %w", value, err)
		}
		c.LatAccelGateG = val
	case "YAW_RATE_GATE_DPS":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid YAW_RATE_GATE_DPS %q: %w", value, err)
		}
		c.YawRateGateDPS = val
	case "GPS_CORRECTION_GAIN":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_CORRECTION_GAIN %q: %w", value, err)
		}
		if val < 0 || val > 1 {
			return fmt.Errorf("GPS_CORRECTION_GAIN must be in [0,1], got %g", val)
		}
		c.GPSCorrectionGain = val
	case "MAG_DECLINATION_DEG":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAG_DECLINATION_DEG %q: %w", value, err)
		}
		c.MagDeclinationDeg = val

	// Datalog
	case "LOG_DIR":
		c.LogDir = value
	case "LOG_FLUSH_ROWS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_FLUSH_ROWS %q: %w", value, err)
		}
		c.LogFlushRows = val

	// Start/finish gate
	case "START_LAT":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid START_LAT %q: %w", value, err)
		}
		c.StartLat = val
	case "START_LON":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid START_LON %q: %w", value, err)
		}
		c.StartLon = val
	case "START_RADIUS_M":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid START_RADIUS_M %q: %w", value, err)
		}
		if val <= 0 {
			return fmt.Errorf("START_RADIUS_M must be positive, got %g", val)
		}
		c.StartRadiusM = val
	case "MIN_LAP_TIME_S":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MIN_LAP_TIME_S %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("MIN_LAP_TIME_S must not be negative, got %g", val)
		}
		c.MinLapTimeS = val

	// Tachometer
	case "TACH_GPIO_PIN":
		c.TachGPIOPin = value
	case "PULSES_PER_REV":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PULSES_PER_REV %q: %w", value, err)
		}
		if val <= 0 {
			return fmt.Errorf("PULSES_PER_REV must be positive, got %d", val)
		}
		c.PulsesPerRev = val

	// Throttle
	case "THROTTLE_ENABLE":
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid THROTTLE_ENABLE %q: %w", value, err)
		}
		c.ThrottleEnable = val
	case "THROTTLE_MIN_VOLTS":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THROTTLE_MIN_VOLTS %q: %w", value, err)
		}
		c.ThrottleMinVolts = val
	case "THROTTLE_MAX_VOLTS":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THROTTLE_MAX_VOLTS %q: %w", value, err)
		}
		c.ThrottleMaxVolts = val

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_CONTENT":
		if value != "laps" && value != "telemetry" {
			return fmt.Errorf("DISPLAY_CONTENT must be \"laps\" or \"telemetry\", got %q", value)
		}
		c.DisplayContent = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Session database
	case "SESSION_DB":
		c.SessionDB = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive")
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("LOOP_INTERVAL must be positive")
	}
	if c.TelemetryPublishInterval < c.LoopInterval {
		return fmt.Errorf("TELEMETRY_PUBLISH_INTERVAL must be at least LOOP_INTERVAL")
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("CALIBRATION_SAMPLES must be positive")
	}
	if c.CalibrationDiscard < 0 {
		return fmt.Errorf("CALIBRATION_DISCARD must not be negative")
	}
	if c.ThrottleEnable && c.ThrottleMaxVolts <= c.ThrottleMinVolts {
		return fmt.Errorf("THROTTLE_MAX_VOLTS must exceed THROTTLE_MIN_VOLTS")
	}
	return nil
}

// HasStartGate reports whether a start/finish gate has been configured.
// Lap timing is optional; a bench run has no gate.
func (c *Config) HasStartGate() bool {
	return c.StartLat != 0 || c.StartLon != 0
}

// TachEnabled reports whether a tachometer pin has been configured.
func (c *Config) TachEnabled() bool {
	return c.TachGPIOPin != ""
}

// InitGlobal initializes the global configuration from file. Uses sync.Once
// so repeated calls are harmless; this is the only function that can set
// globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
