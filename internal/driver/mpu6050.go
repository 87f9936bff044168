package driver

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/xtxerr/tremor/internal/logging"
)

var log = logging.Component("driver")

// MPU-6050 register map (accelerometer subset).
const (
	regSmplrtDiv   = 0x19 // sample rate divider
	regConfig      = 0x1A // DLPF config
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B // start of the 6-byte accel block
	regPwrMgmt1    = 0x6B
	regPwrMgmt2    = 0x6C
)

// MPU6050 reads the accelerometer over I2C.
//
// The device is configured for maximum bandwidth: internal rate divider 0
// (1 kHz), DLPF disabled, ±2g range, no standby. All six accelerometer
// bytes are read in a single I2C transaction.
type MPU6050 struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// NewMPU6050 opens the named I2C bus ("" selects the first available one)
// and initializes the sensor at addr.
func NewMPU6050(busName string, addr uint16) (*MPU6050, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	m := &MPU6050{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}

	if err := m.configure(); err != nil {
		bus.Close()
		return nil, err
	}

	// Test read to verify the connection and warm up the bus.
	if _, err := m.ReadRaw(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("test read: %w", err)
	}

	log.Info("mpu6050 initialized", "bus", busName, "addr", fmt.Sprintf("%#x", addr))
	return m, nil
}

// configure puts the sensor in its highest-bandwidth mode.
func (m *MPU6050) configure() error {
	regs := []struct {
		reg, val byte
	}{
		{regPwrMgmt1, 0x00},    // wake up, no sleep
		{regSmplrtDiv, 0x00},   // 1 kHz internal rate
		{regConfig, 0x00},      // DLPF disabled for max bandwidth
		{regGyroConfig, 0x00},  // ±250°/s, no self-test
		{regAccelConfig, 0x00}, // ±2g, no self-test
		{regPwrMgmt2, 0x00},    // no standby
	}

	for _, r := range regs {
		if err := m.dev.Tx([]byte{r.reg, r.val}, nil); err != nil {
			return fmt.Errorf("write register %#x: %w", r.reg, err)
		}
	}
	return nil
}

// ReadRaw reads the 6-byte accelerometer block in one transaction.
func (m *MPU6050) ReadRaw() (Reading, error) {
	var buf [6]byte
	if err := m.dev.Tx([]byte{regAccelXoutH}, buf[:]); err != nil {
		return Reading{}, fmt.Errorf("read accel block: %w", err)
	}

	return Reading{
		X: int16(binary.BigEndian.Uint16(buf[0:2])),
		Y: int16(binary.BigEndian.Uint16(buf[2:4])),
		Z: int16(binary.BigEndian.Uint16(buf[4:6])),
	}, nil
}

// Reinit re-runs the register configuration. A brown-out resets PWR_MGMT_1
// to sleep mode, so the device must be fully reconfigured before reads
// deliver valid data again.
func (m *MPU6050) Reinit() error {
	return m.configure()
}

// Close releases the I2C bus.
func (m *MPU6050) Close() error {
	return m.bus.Close()
}
