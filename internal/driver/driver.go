// Package driver abstracts the raw accelerometer transport.
//
// The acquisition loop only depends on the Driver interface; the concrete
// transport (I2C hardware or a simulation) is injected at startup.
package driver

import "math"

// Sensitivity is the MPU-6050 accelerometer scale factor in LSB/g for the
// ±2g range.
const Sensitivity = 16384.0

// Reading is one raw accelerometer sample: a signed 16-bit triplet as
// delivered by the sensor, before scaling to physical units.
type Reading struct {
	X, Y, Z int16
}

// Driver reads raw accelerometer triplets. Reads may fail transiently;
// callers are expected to re-init and retry.
type Driver interface {
	// ReadRaw returns one raw triplet.
	ReadRaw() (Reading, error)

	// Reinit re-establishes the sensor after a failed read. A power glitch
	// can reset the device to its power-on state, where plain reads return
	// stale data instead of failing.
	Reinit() error

	// Close releases the underlying transport.
	Close() error
}

// Scale converts a raw reading to g-force per axis.
func Scale(r Reading) (x, y, z float64) {
	return float64(r.X) / Sensitivity,
		float64(r.Y) / Sensitivity,
		float64(r.Z) / Sensitivity
}

// Magnitude returns the Euclidean norm of the scaled triplet in g.
func Magnitude(r Reading) float64 {
	x, y, z := Scale(r)
	return math.Sqrt(x*x + y*y + z*z)
}
