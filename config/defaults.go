// Package config provides configuration loading, defaults and validation
// for the tremor daemon.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or CLI flags.
package config

import "time"

// =============================================================================
// Sampling Defaults
// =============================================================================

const (
	// DefaultSamplingRate is the acquisition rate in samples per second.
	// Override via config: sampling.rate
	DefaultSamplingRate = 800

	// MinSamplingRate and MaxSamplingRate bound the configurable rate.
	MinSamplingRate = 100
	MaxSamplingRate = 1000

	// DefaultSpinThreshold is the slack below which the acquisition loop
	// busy-spins to the tick deadline instead of sleeping. Sleeping for
	// sub-millisecond intervals oversleeps on coarse schedulers.
	// Override via config: sampling.spin_threshold
	DefaultSpinThreshold = 500 * time.Microsecond

	// DefaultReadBackoff is the pause after a failed sensor read before the
	// loop retries. Repeated failures keep retrying at this interval.
	DefaultReadBackoff = 100 * time.Millisecond

	// DefaultI2CAddr is the MPU-6050 I2C address with AD0 low.
	// Override via config: sampling.i2c_addr
	DefaultI2CAddr = 0x68
)

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultReadingsRoot is the root directory of the segment archive.
	// Override via config: storage.readings_root
	DefaultReadingsRoot = "readings"

	// DefaultMaxSegments is the retention window size in segment files.
	// At one segment per second this is the retained duration in seconds.
	// Override via config: storage.max_segments
	DefaultMaxSegments = 120

	// DefaultFlushWorkers is the async flush pool size.
	// Range: 1-2. Only used when storage.async_flush is true.
	DefaultFlushWorkers = 1

	// MaxFlushWorkers caps the async flush pool.
	MaxFlushWorkers = 2

	// DefaultSweepInterval is how often the orphan sweep reconciles the
	// archive directory with the retention window. Zero disables the sweep.
	// Override via config: storage.sweep_interval
	DefaultSweepInterval = 10 * time.Minute
)

// =============================================================================
// Shutdown Defaults
// =============================================================================

const (
	// DefaultStopTimeout is how long Stop waits for the acquisition loop to
	// exit before proceeding with forced teardown.
	DefaultStopTimeout = 2 * time.Second
)
