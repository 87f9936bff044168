// Package sampler runs the timed acquisition loop.
//
// The producer owns the acquisition cadence: it reads the sensor at a fixed
// rate, converts each raw triplet to a scalar magnitude and hands the sample
// to the segmenter. Everything runs on one goroutine to keep the
// jitter-sensitive timing away from scheduler contention.
package sampler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xtxerr/tremor/internal/driver"
	"github.com/xtxerr/tremor/internal/logging"
)

var log = logging.Component("sampler")

// pauseSleep is how long the loop sleeps per iteration while paused.
const pauseSleep = time.Millisecond

// overrunReportEvery throttles overrun logging to once per this many
// samples, so a persistently slow tick does not flood the log.
const overrunReportEvery = 8000

// Acceptor consumes produced samples. Implemented by segment.Segmenter.
type Acceptor interface {
	Accept(t time.Time, magnitude float64)
}

// Config holds producer configuration.
type Config struct {
	// Rate is the target acquisition rate in samples per second. Must be > 0.
	Rate int

	// SpinThreshold is the slack below which the loop busy-spins to the
	// tick deadline instead of sleeping.
	SpinThreshold time.Duration

	// ReadBackoff is the pause after a failed sensor read.
	ReadBackoff time.Duration
}

// Producer runs the acquisition loop.
type Producer struct {
	drv      driver.Driver
	acceptor Acceptor

	interval      time.Duration
	rate          int
	spinThreshold time.Duration
	readBackoff   time.Duration

	paused     atomic.Bool
	connected  atomic.Bool
	failedOnce atomic.Bool
	total      atomic.Uint64
	thisSecond atomic.Uint64
	overruns   atomic.Uint64
}

// New creates a producer reading from drv and feeding acc.
func New(drv driver.Driver, acc Acceptor, cfg Config) *Producer {
	return &Producer{
		drv:           drv,
		acceptor:      acc,
		interval:      time.Second / time.Duration(cfg.Rate),
		rate:          cfg.Rate,
		spinThreshold: cfg.SpinThreshold,
		readBackoff:   cfg.ReadBackoff,
	}
}

// Run executes the acquisition loop until ctx is cancelled. It returns
// within at most one sample interval plus one driver read of cancellation.
func (p *Producer) Run(ctx context.Context) {
	log.Info("acquisition loop started",
		"rate", p.rate,
		"interval", p.interval,
		"spin_threshold", p.spinThreshold)

	var curSecond time.Time

	for ctx.Err() == nil {
		if p.paused.Load() {
			sleepCtx(ctx, pauseSleep)
			continue
		}

		start := time.Now()

		raw, err := p.drv.ReadRaw()
		if err != nil {
			if p.noteReadFailure() {
				log.Warn("sensor read failed", "error", err)
			}
			sleepCtx(ctx, p.readBackoff)
			// A failed read may have left the device in its power-on
			// state; reconfigure before the next attempt.
			if err := p.drv.Reinit(); err != nil {
				log.Debug("sensor reinit failed", "error", err)
			}
			continue
		}
		if !p.connected.Swap(true) {
			log.Info("sensor connected")
		}

		sec := start.Truncate(time.Second)
		if !sec.Equal(curSecond) {
			curSecond = sec
			p.thisSecond.Store(0)
		}

		p.acceptor.Accept(start, driver.Magnitude(raw))
		p.total.Add(1)
		p.thisSecond.Add(1)

		p.waitNextTick(ctx, start)
	}

	log.Info("acquisition loop stopped", "total_samples", p.total.Load())
}

// waitNextTick burns the remaining tick budget. Large slack sleeps to yield
// the CPU; slack under the spin threshold busy-waits, since sleeping that
// short oversleeps on coarse-grained schedulers. Overruns never sleep.
func (p *Producer) waitNextTick(ctx context.Context, start time.Time) {
	elapsed := time.Since(start)
	slack := p.interval - elapsed

	switch {
	case slack <= 0:
		n := p.overruns.Add(1)
		if n%overrunReportEvery == 1 {
			log.Warn("tick overrun",
				"behind", -slack,
				"overruns", n,
				"achieved_hz", int(time.Second/elapsed))
		}
	case slack > p.spinThreshold:
		sleepCtx(ctx, slack)
	default:
		deadline := start.Add(p.interval)
		for time.Now().Before(deadline) {
		}
	}
}

// noteReadFailure marks the connection lost and reports whether the failure
// should be logged: the very first failure, or a newly lost connection.
// Repeat failures within one outage stay quiet.
func (p *Producer) noteReadFailure() bool {
	wasConnected := p.connected.Swap(false)
	first := !p.failedOnce.Swap(true)
	return wasConnected || first
}

// Pause makes the loop skip acquisition and timing without terminating it
// or losing the sensor connection.
func (p *Producer) Pause() { p.paused.Store(true) }

// Resume re-enables acquisition; sampling restarts within one interval.
func (p *Producer) Resume() { p.paused.Store(false) }

// Paused reports whether the loop is paused.
func (p *Producer) Paused() bool { return p.paused.Load() }

// Connected reports whether the last sensor read succeeded.
func (p *Producer) Connected() bool { return p.connected.Load() }

// TotalSamples returns the number of samples produced since start.
func (p *Producer) TotalSamples() uint64 { return p.total.Load() }

// SamplesThisSecond returns the sample count of the current wall-clock second.
func (p *Producer) SamplesThisSecond() uint64 { return p.thisSecond.Load() }

// Overruns returns the number of ticks that exceeded their budget.
func (p *Producer) Overruns() uint64 { return p.overruns.Load() }

// sleepCtx sleeps for d or until ctx is cancelled, whichever is first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
