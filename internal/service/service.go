// Package service orchestrates the capture pipeline lifecycle and exposes
// status to the external command layer.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xtxerr/tremor/config"
	"github.com/xtxerr/tremor/internal/driver"
	"github.com/xtxerr/tremor/internal/logging"
	"github.com/xtxerr/tremor/internal/sampler"
	"github.com/xtxerr/tremor/internal/segment"
	"github.com/xtxerr/tremor/internal/stats"
	"github.com/xtxerr/tremor/internal/storage"
)

var log = logging.Component("service")

// State is the service lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StatePaused
	StateStopping
)

// String returns a human-readable representation of the State.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the service, consumed by the
// external command/status layer.
type Snapshot struct {
	State             string            `json:"state"`
	Connected         bool              `json:"connected"`
	Running           bool              `json:"running"`
	Paused            bool              `json:"paused"`
	SamplingRate      int               `json:"sampling_rate"`
	TotalSamples      uint64            `json:"total_samples"`
	SamplesThisSecond uint64            `json:"samples_this_second"`
	RetainedSegments  int               `json:"retained_segments"`
	RetainedSamples   int               `json:"retained_samples"`
	Archive           storage.FileStats `json:"archive"`
	Magnitude         stats.Summary     `json:"magnitude"`
}

// Service is the capture service controller.
//
// States: Stopped → Starting → Running ⇄ Paused → Stopping → Stopped.
// All mutable flags and counters live behind synchronized accessors; there
// are no ambient globals.
type Service struct {
	mu    sync.Mutex
	state State

	cfg       *config.Config
	drv       driver.Driver
	window    *storage.Window
	archive   *storage.Archive
	magnitude *stats.Magnitude
	sweeper   *storage.Sweeper

	// Per-run pipeline; rebuilt on every Start. The producer outlives Stop
	// so final counters remain visible in status.
	producer  *sampler.Producer
	segmenter *segment.Segmenter
	pipeline  *storage.Pipeline
	cancel    context.CancelFunc
	done      chan struct{}

	stopTimeout time.Duration
}

// New creates a service around an injected sensor driver. The retention
// window and magnitude statistics persist across Start/Stop cycles; the
// orphan sweep runs for the service's whole lifetime.
func New(cfg *config.Config, drv driver.Driver) (*Service, error) {
	s := &Service{
		cfg:         cfg,
		drv:         drv,
		window:      storage.NewWindow(cfg.Storage.MaxSegments),
		archive:     storage.NewArchive(cfg.Storage.ReadingsRoot),
		magnitude:   stats.NewMagnitude(),
		stopTimeout: config.DefaultStopTimeout,
	}

	if cfg.Storage.SweepInterval > 0 {
		sweeper, err := storage.NewSweeper(cfg.Storage.ReadingsRoot, s.window, cfg.Storage.SweepInterval)
		if err != nil {
			return nil, fmt.Errorf("create sweeper: %w", err)
		}
		s.sweeper = sweeper
		sweeper.Start()
	}

	return s, nil
}

// Start launches the acquisition loop. It is a no-op when the service is
// already starting or running (paused included).
func (s *Service) Start() error {
	s.mu.Lock()

	switch s.state {
	case StateStarting, StateRunning, StatePaused:
		s.mu.Unlock()
		return nil
	case StateStopping:
		s.mu.Unlock()
		return fmt.Errorf("service is stopping")
	}
	s.state = StateStarting

	s.pipeline = storage.NewPipeline(s.window, storage.PipelineConfig{
		Root:         s.cfg.Storage.ReadingsRoot,
		AsyncFlush:   s.cfg.Storage.AsyncFlush,
		FlushWorkers: s.cfg.Storage.FlushWorkers,
		Magnitude:    s.magnitude,
	})
	s.segmenter = segment.NewSegmenter(s.cfg.Sampling.Rate, s.pipeline)
	s.producer = sampler.New(s.drv, s.segmenter, sampler.Config{
		Rate:          s.cfg.Sampling.Rate,
		SpinThreshold: s.cfg.Sampling.SpinThreshold,
		ReadBackoff:   config.DefaultReadBackoff,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	producer := s.producer
	s.state = StateRunning
	s.mu.Unlock()

	go func() {
		producer.Run(ctx)
		close(done)
	}()

	log.Info("service started",
		"rate", s.cfg.Sampling.Rate,
		"max_segments", s.cfg.Storage.MaxSegments,
		"async_flush", s.cfg.Storage.AsyncFlush)
	return nil
}

// Pause suspends acquisition without tearing down the loop or the sensor
// connection.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	s.producer.Pause()
	s.state = StatePaused
	log.Info("service paused")
}

// Resume re-enables acquisition after a Pause; sampling restarts within
// one interval.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return
	}
	s.producer.Resume()
	s.state = StateRunning
	log.Info("service resumed")
}

// Stop signals the acquisition loop to exit, joins it with a bounded
// timeout, flushes the open segment even if its second has not elapsed and
// waits for in-flight flush I/O. Stop never blocks indefinitely: on join
// timeout it skips the final flush, proceeds with forced teardown and
// reports the anomaly.
func (s *Service) Stop() error {
	s.mu.Lock()
	switch s.state {
	case StateStopped, StateStopping:
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	cancel := s.cancel
	done := s.done
	segmenter := s.segmenter
	pipeline := s.pipeline
	s.mu.Unlock()

	cancel()

	var joined bool
	select {
	case <-done:
		joined = true
	case <-time.After(s.stopTimeout):
		log.Error("acquisition loop did not exit within timeout, forcing teardown",
			"timeout", s.stopTimeout)
	}

	// Final flush of buffered samples. The segmenter is owned by the
	// acquisition goroutine, so the flush is only safe once the loop has
	// actually exited; after a join timeout the open segment stays with
	// the wedged loop.
	if joined {
		segmenter.FlushOpen()
	}
	pipeline.Close()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	log.Info("service stopped", "joined", joined)
	return nil
}

// Close releases long-lived resources. The service cannot be restarted
// afterwards.
func (s *Service) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	if s.sweeper != nil {
		if err := s.sweeper.Stop(); err != nil {
			log.Warn("sweeper shutdown failed", "error", err)
		}
	}
	return s.drv.Close()
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a point-in-time snapshot of the service.
func (s *Service) Status() Snapshot {
	s.mu.Lock()
	state := s.state
	producer := s.producer
	s.mu.Unlock()

	snap := Snapshot{
		State:            state.String(),
		Running:          state == StateRunning || state == StatePaused,
		Paused:           state == StatePaused,
		SamplingRate:     s.cfg.Sampling.Rate,
		RetainedSegments: s.window.Len(),
		RetainedSamples:  s.window.SampleCount(),
		Magnitude:        s.magnitude.Snapshot(),
	}

	if producer != nil {
		snap.Connected = producer.Connected()
		snap.TotalSamples = producer.TotalSamples()
		snap.SamplesThisSecond = producer.SamplesThisSecond()
	}

	if st, err := s.archive.FileStats(); err == nil {
		snap.Archive = st
	} else {
		log.Warn("archive stats failed", "error", err)
	}

	return snap
}

// ListSegmentFiles returns the relative paths of all segment records, most
// recent first.
func (s *Service) ListSegmentFiles() ([]string, error) {
	return s.archive.ListFiles()
}

// FolderStructure returns the nested year→month→week→day mapping of the
// archive for the calendar view.
func (s *Service) FolderStructure() (map[string]map[string]map[string]map[string][]storage.FileEntry, error) {
	return s.archive.FolderStructure()
}

// LoadRecord decodes a record file into absolute-timestamped points.
func (s *Service) LoadRecord(relPath string) ([]storage.Point, error) {
	return s.archive.LoadRecord(relPath)
}
