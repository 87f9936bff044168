package storage

import (
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/tremor/internal/segment"
	"github.com/xtxerr/tremor/internal/stats"
)

// Pipeline ties the segment writer, retention window and aggregate
// rebuilder into one flush path. It implements segment.Flusher.
//
// Flush I/O runs either synchronously on the caller's goroutine or on a
// bounded worker pool, per configuration. Either way, ownership of the
// flushed segment transfers completely at hand-off: the acquisition
// goroutine never touches a segment after Flush returns.
type Pipeline struct {
	writer    *Writer
	window    *Window
	aggregate *AggregateWriter
	magnitude *stats.Magnitude

	// flushMu orders registration and aggregate rebuild: a worker that
	// registers later also rebuilds later, so the published aggregate never
	// regresses to an older window.
	flushMu sync.Mutex

	async bool
	pool  *errgroup.Group
}

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	// Root is the archive root directory.
	Root string

	// AsyncFlush offloads flush I/O to a worker pool.
	AsyncFlush bool

	// FlushWorkers is the pool size when AsyncFlush is set. Range: 1-2.
	FlushWorkers int

	// Magnitude, if non-nil, receives every flushed sample's magnitude.
	Magnitude *stats.Magnitude
}

// NewPipeline creates a flush pipeline over an existing window.
func NewPipeline(window *Window, cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		writer:    NewWriter(cfg.Root),
		window:    window,
		aggregate: NewAggregateWriter(cfg.Root),
		magnitude: cfg.Magnitude,
		async:     cfg.AsyncFlush,
	}

	if cfg.AsyncFlush {
		workers := cfg.FlushWorkers
		if workers < 1 {
			workers = 1
		}
		p.pool = new(errgroup.Group)
		p.pool.SetLimit(workers)
	}

	return p
}

// Flush persists a closed segment. In async mode the segment is handed to
// the worker pool; if every worker is busy the segment is dropped with a
// log entry rather than queued, keeping memory bounded under sustained
// storage slowness.
func (p *Pipeline) Flush(seg *segment.Segment) {
	if !p.async {
		p.flush(seg)
		return
	}

	if !p.pool.TryGo(func() error {
		p.flush(seg)
		return nil
	}) {
		log.Error("flush pool saturated, dropping segment",
			"second", seg.Second,
			"samples", len(seg.Samples))
	}
}

// flush runs the full persistence path for one segment.
func (p *Pipeline) flush(seg *segment.Segment) {
	rec, err := p.writer.Write(seg)
	if err != nil {
		// Deliberate fail-fast: retrying risks unbounded memory growth
		// under sustained storage failure, so the segment is dropped.
		log.Error("segment write failed, dropping segment",
			"second", seg.Second,
			"samples", len(seg.Samples),
			"error", err)
		return
	}

	log.Debug("segment written", "path", rec.RelPath, "rows", rec.Rows)

	if p.magnitude != nil {
		for _, s := range seg.Samples {
			p.magnitude.Observe(s.Magnitude)
		}
	}

	p.flushMu.Lock()
	agg, evicted := p.window.Register(rec, seg.Samples)
	if err := p.aggregate.Rebuild(agg); err != nil {
		log.Error("aggregate rebuild failed", "error", err)
	}
	p.flushMu.Unlock()

	// Eviction deletes are best-effort; the in-memory aggregate already
	// dropped the data, so an on-disk orphan is cleanup debt for the
	// sweep, not a correctness violation.
	for _, ev := range evicted {
		if err := os.Remove(ev.Path); err != nil {
			log.Warn("evicted record delete failed", "path", ev.Path, "error", err)
		} else {
			log.Debug("evicted record deleted", "path", ev.RelPath)
		}
	}
}

// Close waits for any in-flight async flushes to finish.
func (p *Pipeline) Close() {
	if p.pool != nil {
		p.pool.Wait()
	}
}
