// tremord is the high-rate vibration capture daemon.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/tremor/config"
	"github.com/xtxerr/tremor/internal/driver"
	"github.com/xtxerr/tremor/internal/logging"
	"github.com/xtxerr/tremor/internal/service"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	root := flag.String("root", "", "readings root directory (overrides config)")
	rate := flag.Int("rate", 0, "sampling rate in Hz (overrides config)")
	simulate := flag.Bool("simulate", false, "use the simulated sensor driver")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "log in JSON format")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if *root != "" {
		cfg.Storage.ReadingsRoot = *root
	}
	if *rate != 0 {
		cfg.Sampling.Rate = *rate
	}
	if *simulate {
		cfg.Sampling.Simulate = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logJSON {
		cfg.Log.JSON = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Validate config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	logger := logging.Component("main")
	logger.Info("tremord starting", "version", Version)

	// =========================================================================
	// Open the sensor driver
	// =========================================================================

	var drv driver.Driver
	if cfg.Sampling.Simulate {
		logger.Info("using simulated sensor driver")
		drv = driver.NewSim()
	} else {
		drv, err = driver.NewMPU6050(cfg.Sampling.I2CBus, cfg.Sampling.I2CAddr)
		if err != nil {
			log.Fatalf("Open sensor: %v", err)
		}
	}

	// =========================================================================
	// Create and Start the Capture Service
	// =========================================================================

	svc, err := service.New(cfg, drv)
	if err != nil {
		log.Fatalf("Create service: %v", err)
	}

	if err := svc.Start(); err != nil {
		log.Fatalf("Start service: %v", err)
	}

	logger.Info("capture running",
		"rate", cfg.Sampling.Rate,
		"readings_root", cfg.Storage.ReadingsRoot,
		"max_segments", cfg.Storage.MaxSegments)

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if err := svc.Close(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	status := svc.Status()
	logger.Info("shutdown complete",
		"total_samples", status.TotalSamples,
		"retained_segments", status.RetainedSegments)
}
