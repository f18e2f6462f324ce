package sensors

// MPU-9250 register addresses. Only the registers this driver touches are
// listed; the full map is in the InvenSense register map revision 1.6.
const (
	regSmplrtDiv    = 0x19 // sample rate = internal rate / (1 + divider)
	regConfig       = 0x1A // DLPF_CFG in bits 2:0
	regGyroConfig   = 0x1B // GYRO_FS_SEL in bits 4:3
	regAccelConfig  = 0x1C // ACCEL_FS_SEL in bits 4:3
	regAccelConfig2 = 0x1D // accel DLPF in bits 2:0
	regIntPinCfg    = 0x37 // BYPASS_EN in bit 1
	regAccelXOutH   = 0x3B // start of the 14-byte accel/temp/gyro block
	regPwrMgmt1     = 0x6B
	regWhoAmI       = 0x75
)

const (
	pwrMgmt1Reset    = 0x80 // H_RESET
	pwrMgmt1ClockPLL = 0x01 // auto-select PLL when ready
	intPinCfgBypass  = 0x02 // BYPASS_EN: wire the AK8963 onto the host bus
	whoAmIMPU9250    = 0x71
	whoAmIMPU9255    = 0x73
)

// AK8963 magnetometer registers (reachable once bypass is enabled).
const (
	akRegWIA   = 0x00 // device id, reads 0x48
	akRegST1   = 0x01 // DRDY in bit 0
	akRegHXL   = 0x03 // six data bytes little-endian, then ST2
	akRegST2   = 0x09 // HOFL overflow in bit 3
	akRegCNTL1 = 0x0A
	akRegASAX  = 0x10 // factory sensitivity adjustment, three bytes
)

const (
	akDeviceID      = 0x48
	akCntlPowerDown = 0x00
	akCntlFuseROM   = 0x0F
	akCntlCont2_16  = 0x16 // 100 Hz continuous, 16-bit output
	akST1DataReady  = 0x01
	akST2Overflow   = 0x08
)

// Full-scale ranges are two-bit codes shared by GYRO_CONFIG and
// ACCEL_CONFIG (bits 4:3).
var (
	// accelLSBPerG by ACCEL_FS_SEL code: ±2g, ±4g, ±8g, ±16g.
	accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}
	// gyroLSBPerDPS by GYRO_FS_SEL code: ±250, ±500, ±1000, ±2000 °/s.
	gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}
)

// akMicroTeslaPerLSB is the AK8963 16-bit output resolution.
const akMicroTeslaPerLSB = 0.15
