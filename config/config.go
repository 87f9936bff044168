package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete daemon configuration.
type Config struct {
	// Sampling configures the acquisition loop and the sensor transport.
	Sampling SamplingConfig `yaml:"sampling"`

	// Storage configures the segment archive and retention.
	Storage StorageConfig `yaml:"storage"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// SamplingConfig configures the acquisition loop and the sensor transport.
type SamplingConfig struct {
	// Rate is the target acquisition rate in samples per second.
	// Range: 100-1000.
	Rate int `yaml:"rate"`

	// SpinThreshold is the slack below which the loop busy-spins to the
	// tick deadline instead of sleeping.
	SpinThreshold time.Duration `yaml:"spin_threshold"`

	// I2CBus is the I2C bus name or number ("" selects the first bus).
	I2CBus string `yaml:"i2c_bus"`

	// I2CAddr is the sensor's I2C address.
	I2CAddr uint16 `yaml:"i2c_addr"`

	// Simulate replaces the hardware sensor with a deterministic
	// simulated driver. Useful on machines without an MPU-6050.
	Simulate bool `yaml:"simulate"`
}

// StorageConfig configures the segment archive and retention.
type StorageConfig struct {
	// ReadingsRoot is the root directory of the segment archive.
	ReadingsRoot string `yaml:"readings_root"`

	// MaxSegments is the retention window size in segment files.
	MaxSegments int `yaml:"max_segments"`

	// AsyncFlush offloads segment flush I/O to a small worker pool so a
	// slow disk write does not steal sampling time. Trades write-ordering
	// simplicity for latency isolation.
	AsyncFlush bool `yaml:"async_flush"`

	// FlushWorkers is the async flush pool size. Range: 1-2.
	FlushWorkers int `yaml:"flush_workers"`

	// SweepInterval is how often orphaned record files are reconciled
	// against the retention window. Zero disables the sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output from text to JSON format.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			Rate:          DefaultSamplingRate,
			SpinThreshold: DefaultSpinThreshold,
			I2CAddr:       DefaultI2CAddr,
		},
		Storage: StorageConfig{
			ReadingsRoot:  DefaultReadingsRoot,
			MaxSegments:   DefaultMaxSegments,
			FlushWorkers:  DefaultFlushWorkers,
			SweepInterval: DefaultSweepInterval,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Sampling.Rate < MinSamplingRate || c.Sampling.Rate > MaxSamplingRate {
		return fmt.Errorf("sampling.rate %d out of range [%d, %d]",
			c.Sampling.Rate, MinSamplingRate, MaxSamplingRate)
	}
	if c.Sampling.SpinThreshold < 0 {
		return fmt.Errorf("sampling.spin_threshold must not be negative")
	}
	if c.Storage.ReadingsRoot == "" {
		return fmt.Errorf("storage.readings_root must not be empty")
	}
	if c.Storage.MaxSegments <= 0 {
		return fmt.Errorf("storage.max_segments must be positive")
	}
	if c.Storage.FlushWorkers < 1 || c.Storage.FlushWorkers > MaxFlushWorkers {
		return fmt.Errorf("storage.flush_workers %d out of range [1, %d]",
			c.Storage.FlushWorkers, MaxFlushWorkers)
	}
	if c.Storage.SweepInterval < 0 {
		return fmt.Errorf("storage.sweep_interval must not be negative")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown", c.Log.Level)
	}
	return nil
}
