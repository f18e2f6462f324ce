package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const minimalConfig = `
# Minimal config: everything else takes defaults.
MQTT_BROKER=tcp://localhost:1883
GPS_SERIAL_PORT=/dev/ttyAMA0
`

func TestLoadMinimalConfigUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "/dev/ttyAMA0", cfg.GPSSerialPort)

	assert.Equal(t, "midget/telemetry", cfg.TopicTelemetry)
	assert.Equal(t, uint16(0x68), cfg.IMUI2CAddr)
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.Equal(t, byte(2), cfg.IMUGyroRange)
	assert.Equal(t, 9600, cfg.GPSBaudRate)
	assert.Equal(t, 10, cfg.LoopInterval)
	assert.Equal(t, 100, cfg.TelemetryPublishInterval)
	assert.Equal(t, 0.98, cfg.FilterBeta)
	assert.Equal(t, 0.2, cfg.AccelLPFAlpha)
	assert.Equal(t, 12.0, cfg.GPSSpeedMinMPH)
	assert.Equal(t, 25.0, cfg.YawRateGateDPS)
	assert.Equal(t, 0.15, cfg.GPSCorrectionGain)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 3.0, cfg.StartRadiusM)
	assert.Equal(t, 5.0, cfg.MinLapTimeS)
	assert.Equal(t, 128, cfg.PulsesPerRev)
	assert.Equal(t, 8081, cfg.WebServerPort)
	assert.Equal(t, "sessions.db", cfg.SessionDB)

	assert.False(t, cfg.HasStartGate())
	assert.False(t, cfg.TachEnabled())
	assert.False(t, cfg.ThrottleEnable)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
MQTT_BROKER=tcp://10.0.0.5:1883
GPS_SERIAL_PORT=/dev/ttyUSB0
GPS_BAUD_RATE=115200
IMU_I2C_ADDR=0x69
IMU_ACCEL_RANGE=3
IMU_GYRO_RANGE=1
LOOP_INTERVAL=5
TELEMETRY_PUBLISH_INTERVAL=50
FILTER_BETA=0.95
GPS_SPEED_MIN_MPH=8.5
MAG_DECLINATION_DEG=11.5
LOG_DIR=/var/log/midget
START_LAT=33.825590689244244
START_LON=-118.28829968858749
TACH_GPIO_PIN=GPIO17
PULSES_PER_REV=64
THROTTLE_ENABLE=true
THROTTLE_MIN_VOLTS=0.4
THROTTLE_MAX_VOLTS=3.0
`))
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.GPSBaudRate)
	assert.Equal(t, uint16(0x69), cfg.IMUI2CAddr)
	assert.Equal(t, byte(3), cfg.IMUAccelRange)
	assert.Equal(t, byte(1), cfg.IMUGyroRange)
	assert.Equal(t, 5, cfg.LoopInterval)
	assert.Equal(t, 50, cfg.TelemetryPublishInterval)
	assert.Equal(t, 0.95, cfg.FilterBeta)
	assert.Equal(t, 8.5, cfg.GPSSpeedMinMPH)
	assert.Equal(t, 11.5, cfg.MagDeclinationDeg)
	assert.Equal(t, "/var/log/midget", cfg.LogDir)
	assert.Equal(t, 33.825590689244244, cfg.StartLat)
	assert.Equal(t, -118.28829968858749, cfg.StartLon)
	assert.Equal(t, "GPIO17", cfg.TachGPIOPin)
	assert.Equal(t, 64, cfg.PulsesPerRev)
	assert.True(t, cfg.ThrottleEnable)
	assert.Equal(t, 0.4, cfg.ThrottleMinVolts)
	assert.Equal(t, 3.0, cfg.ThrottleMaxVolts)

	assert.True(t, cfg.HasStartGate())
	assert.True(t, cfg.TachEnabled())
}

func TestLoadSkipsCommentsAndBlankLines(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
# Broker lives on the pit laptop.
MQTT_BROKER=tcp://pit:1883

# u-blox on the UART header.
GPS_SERIAL_PORT=/dev/ttyAMA0
`))
	require.NoError(t, err)
	assert.Equal(t, "tcp://pit:1883", cfg.MQTTBroker)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"BOGUS_KEY=1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), "BOGUS_KEY")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"JUST_A_KEY_NO_EQUALS\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config line")
}

func TestLoadValueValidation(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"accel range too big", "IMU_ACCEL_RANGE=4", "IMU_ACCEL_RANGE must be 0-3"},
		{"gyro range negative", "IMU_GYRO_RANGE=-1", "IMU_GYRO_RANGE must be 0-3"},
		{"dlpf out of range", "IMU_DLPF_CFG=8", "IMU_DLPF_CFG must be 0-7"},
		{"smplrt div out of range", "IMU_SMPLRT_DIV=256", "IMU_SMPLRT_DIV must be 0-255"},
		{"beta above one", "FILTER_BETA=1.5", "FILTER_BETA must be in [0,1]"},
		{"lpf alpha zero", "ACCEL_LPF_ALPHA=0", "ACCEL_LPF_ALPHA must be in (0,1]"},
		{"gain above one", "GPS_CORRECTION_GAIN=2", "GPS_CORRECTION_GAIN must be in [0,1]"},
		{"radius zero", "START_RADIUS_M=0", "START_RADIUS_M must be positive"},
		{"pulses zero", "PULSES_PER_REV=0", "PULSES_PER_REV must be positive"},
		{"addr not a number", "IMU_I2C_ADDR=imu", "invalid IMU_I2C_ADDR"},
		{"bool garbage", "THROTTLE_ENABLE=maybe", "invalid THROTTLE_ENABLE"},
		{"display content unknown", "DISPLAY_CONTENT=dashboard", "DISPLAY_CONTENT must be"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, minimalConfig+tc.line+"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadRequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, "GPS_SERIAL_PORT=/dev/ttyAMA0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_BROKER is required")

	_, err = Load(writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPS_SERIAL_PORT is required")
}

func TestLoadCrossFieldValidation(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"TELEMETRY_PUBLISH_INTERVAL=5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEMETRY_PUBLISH_INTERVAL must be at least LOOP_INTERVAL")

	_, err = Load(writeConfig(t, minimalConfig+"THROTTLE_ENABLE=true\nTHROTTLE_MIN_VOLTS=3.0\nTHROTTLE_MAX_VOLTS=2.0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THROTTLE_MAX_VOLTS must exceed THROTTLE_MIN_VOLTS")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config file")
}
