// Package sensors holds the hardware adapters: the MPU-9250/AK8963 register
// driver behind the fusion loop's sample source, and the throttle position
// ADC. Everything speaks upstream periph.io interfaces so the packages above
// never see a bus.
package sensors

import (
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/imu"
)

// ErrMagUnavailable is returned by ReadMag when the AK8963 did not come up
// at init; the run continues without a magnetic heading.
var ErrMagUnavailable = errors.New("sensors: magnetometer unavailable")

// ErrMagNotReady is returned when the AK8963 has no fresh sample yet. The
// magnetometer updates at 100 Hz at best; callers hold their previous value.
var ErrMagNotReady = errors.New("sensors: magnetometer sample not ready")

// MPU9250Opts configures the IMU bring-up.
type MPU9250Opts struct {
	// Addr is the MPU-9250's I2C address, 0x68 with AD0 low.
	Addr uint16
	// AccelRange is the ACCEL_FS_SEL code 0..3 (±2/4/8/16 g).
	AccelRange int
	// GyroRange is the GYRO_FS_SEL code 0..3 (±250/500/1000/2000 °/s).
	GyroRange int
	// DLPF is the gyro/temp digital low-pass code 0..7.
	DLPF byte
	// AccelDLPF is the accelerometer low-pass code 0..7.
	AccelDLPF byte
	// SampleRateDiv divides the 1 kHz internal rate: output = 1000/(1+div).
	SampleRateDiv byte
}

// DefaultMPU9250Opts matches the car's wiring and a 100 Hz fusion loop:
// ±8 g (sprint car kerbs clip ±4), ±1000 °/s, 41 Hz DLPF.
func DefaultMPU9250Opts() MPU9250Opts {
	return MPU9250Opts{
		Addr:          0x68,
		AccelRange:    2,
		GyroRange:     2,
		DLPF:          3,
		AccelDLPF:     3,
		SampleRateDiv: 9,
	}
}

// MPU9250 drives the IMU and its piggybacked AK8963 magnetometer over I2C.
// It implements imu.Source. Not safe for concurrent use; the fusion loop is
// the only caller.
type MPU9250 struct {
	dev i2c.Dev
	mag i2c.Dev

	accelScale float64 // LSB per g
	gyroScale  float64 // LSB per °/s

	magReady bool
	asa      [3]float64 // AK8963 factory sensitivity adjustments
}

var _ imu.Source = (*MPU9250)(nil)

// NewMPU9250 resets and configures the IMU, then brings up the AK8963
// through the bypass mux. A dead magnetometer is logged and tolerated; a
// dead IMU is fatal.
func NewMPU9250(bus i2c.Bus, opts MPU9250Opts) (*MPU9250, error) {
	if opts.AccelRange < 0 || opts.AccelRange > 3 {
		return nil, fmt.Errorf("mpu9250: accel range code %d out of range 0..3", opts.AccelRange)
	}
	if opts.GyroRange < 0 || opts.GyroRange > 3 {
		return nil, fmt.Errorf("mpu9250: gyro range code %d out of range 0..3", opts.GyroRange)
	}

	m := &MPU9250{
		dev:        i2c.Dev{Bus: bus, Addr: opts.Addr},
		mag:        i2c.Dev{Bus: bus, Addr: 0x0C},
		accelScale: accelLSBPerG[opts.AccelRange],
		gyroScale:  gyroLSBPerDPS[opts.GyroRange],
	}

	if err := m.writeReg(regPwrMgmt1, pwrMgmt1Reset); err != nil {
		return nil, fmt.Errorf("mpu9250: reset: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := m.writeReg(regPwrMgmt1, pwrMgmt1ClockPLL); err != nil {
		return nil, fmt.Errorf("mpu9250: wake: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	id, err := m.readReg(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: WHO_AM_I: %w", err)
	}
	if id != whoAmIMPU9250 && id != whoAmIMPU9255 {
		return nil, fmt.Errorf("mpu9250: unexpected WHO_AM_I 0x%02X at address 0x%02X", id, opts.Addr)
	}

	steps := []struct {
		reg  byte
		val  byte
		what string
	}{
		{regConfig, opts.DLPF & 0x07, "DLPF"},
		{regSmplrtDiv, opts.SampleRateDiv, "sample rate divider"},
		{regGyroConfig, byte(opts.GyroRange) << 3, "gyro range"},
		{regAccelConfig, byte(opts.AccelRange) << 3, "accel range"},
		{regAccelConfig2, opts.AccelDLPF & 0x07, "accel DLPF"},
		{regIntPinCfg, intPinCfgBypass, "bypass mux"},
	}
	for _, s := range steps {
		if err := m.writeReg(s.reg, s.val); err != nil {
			return nil, fmt.Errorf("mpu9250: configuring %s: %w", s.what, err)
		}
	}
	log.Printf("imu: MPU-9250 up (WHO_AM_I 0x%02X): ±%dg, ±%d°/s, DLPF %d, %d Hz output",
		id,
		[]int{2, 4, 8, 16}[opts.AccelRange],
		[]int{250, 500, 1000, 2000}[opts.GyroRange],
		opts.DLPF,
		1000/(1+int(opts.SampleRateDiv)))

	if err := m.initMag(); err != nil {
		log.Printf("imu: AK8963 init failed, continuing without magnetometer: %v", err)
	} else {
		m.magReady = true
		log.Printf("imu: AK8963 up, sensitivity adj X=%.4f Y=%.4f Z=%.4f", m.asa[0], m.asa[1], m.asa[2])
	}
	return m, nil
}

// initMag powers the AK8963 through fuse-ROM readout into 16-bit continuous
// measurement mode.
func (m *MPU9250) initMag() error {
	id, err := m.readMagReg(akRegWIA)
	if err != nil {
		return fmt.Errorf("WIA: %w", err)
	}
	if id != akDeviceID {
		return fmt.Errorf("unexpected WIA 0x%02X", id)
	}

	if err := m.writeMagReg(akRegCNTL1, akCntlPowerDown); err != nil {
		return fmt.Errorf("power down: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := m.writeMagReg(akRegCNTL1, akCntlFuseROM); err != nil {
		return fmt.Errorf("fuse ROM mode: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	raw := make([]byte, 3)
	if err := m.mag.Tx([]byte{akRegASAX}, raw); err != nil {
		return fmt.Errorf("reading ASA: %w", err)
	}
	for i, v := range raw {
		m.asa[i] = (float64(v)-128)/256 + 1
	}

	if err := m.writeMagReg(akRegCNTL1, akCntlPowerDown); err != nil {
		return fmt.Errorf("power down after fuse ROM: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := m.writeMagReg(akRegCNTL1, akCntlCont2_16); err != nil {
		return fmt.Errorf("continuous mode: %w", err)
	}
	return nil
}

// Read returns one scaled accel/gyro sample. One 14-byte burst keeps all six
// axes from the same internal sampling instant.
func (m *MPU9250) Read() (imu.Sample, error) {
	buf := make([]byte, 14)
	if err := m.dev.Tx([]byte{regAccelXOutH}, buf); err != nil {
		return imu.Sample{}, fmt.Errorf("mpu9250: reading sample: %w", err)
	}

	ax := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	ay := int16(uint16(buf[2])<<8 | uint16(buf[3]))
	az := int16(uint16(buf[4])<<8 | uint16(buf[5]))
	// buf[6:8] is the die temperature, unused.
	gx := int16(uint16(buf[8])<<8 | uint16(buf[9]))
	gy := int16(uint16(buf[10])<<8 | uint16(buf[11]))
	gz := int16(uint16(buf[12])<<8 | uint16(buf[13]))

	return imu.Sample{
		Ax:        float64(ax) / m.accelScale,
		Ay:        float64(ay) / m.accelScale,
		Az:        float64(az) / m.accelScale,
		Gx:        float64(gx) / m.gyroScale,
		Gy:        float64(gy) / m.gyroScale,
		Gz:        float64(gz) / m.gyroScale,
		Timestamp: time.Now(),
	}, nil
}

// ReadMag returns the latest field vector in µT, remapped into the body
// frame: the AK8963 die is rotated relative to the accel/gyro axes, so its
// X/Y swap and Z flips.
func (m *MPU9250) ReadMag() (imu.MagSample, error) {
	if !m.magReady {
		return imu.MagSample{}, ErrMagUnavailable
	}

	st1, err := m.readMagReg(akRegST1)
	if err != nil {
		return imu.MagSample{}, fmt.Errorf("mpu9250: mag status: %w", err)
	}
	if st1&akST1DataReady == 0 {
		return imu.MagSample{}, ErrMagNotReady
	}

	// Six data bytes plus ST2; reading through ST2 latches the next sample.
	buf := make([]byte, 7)
	if err := m.mag.Tx([]byte{akRegHXL}, buf); err != nil {
		return imu.MagSample{}, fmt.Errorf("mpu9250: mag data: %w", err)
	}
	if buf[6]&akST2Overflow != 0 {
		return imu.MagSample{}, fmt.Errorf("mpu9250: magnetic overflow")
	}

	hx := int16(uint16(buf[1])<<8 | uint16(buf[0]))
	hy := int16(uint16(buf[3])<<8 | uint16(buf[2]))
	hz := int16(uint16(buf[5])<<8 | uint16(buf[4]))

	return imu.MagSample{
		Mx: float64(hy) * akMicroTeslaPerLSB * m.asa[1],
		My: float64(hx) * akMicroTeslaPerLSB * m.asa[0],
		Mz: -float64(hz) * akMicroTeslaPerLSB * m.asa[2],
	}, nil
}

func (m *MPU9250) writeReg(reg, val byte) error {
	return m.dev.Tx([]byte{reg, val}, nil)
}

func (m *MPU9250) readReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := m.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (m *MPU9250) writeMagReg(reg, val byte) error {
	return m.mag.Tx([]byte{reg, val}, nil)
}

func (m *MPU9250) readMagReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := m.mag.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}
