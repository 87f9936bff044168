package storage

import (
	"sync"

	"github.com/xtxerr/tremor/internal/segment"
)

// Window is the bounded FIFO of retained segment records and their
// in-memory samples.
//
// Invariant: after any mutation, the aggregate slice equals the
// concatenation, in order, of the samples of every retained record, and the
// window never exceeds its capacity. The mutex is held only for list
// mutation, never across file I/O: eviction returns the records to delete
// and the caller removes the files outside the lock.
type Window struct {
	mu        sync.Mutex
	max       int
	entries   []windowEntry
	aggregate []segment.Sample
}

type windowEntry struct {
	rec  Record
	rows int
}

// NewWindow returns a window capped at max records.
func NewWindow(max int) *Window {
	return &Window{max: max}
}

// Register appends a record and its samples to the tail, evicting from the
// head while over capacity. It returns a snapshot of the aggregate slice
// for rebuilding and the evicted records whose files the caller should
// delete (best-effort).
func (w *Window) Register(rec Record, samples []segment.Sample) (agg []segment.Sample, evicted []Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, windowEntry{rec: rec, rows: len(samples)})
	w.aggregate = append(w.aggregate, samples...)

	for len(w.entries) > w.max {
		head := w.entries[0]
		w.entries = w.entries[1:]
		w.aggregate = w.aggregate[head.rows:]
		evicted = append(evicted, head.rec)
	}

	// Snapshot for the rebuilder; the window keeps mutating concurrently.
	agg = make([]segment.Sample, len(w.aggregate))
	copy(agg, w.aggregate)

	return agg, evicted
}

// Len returns the number of retained records.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// SampleCount returns the total retained sample count.
func (w *Window) SampleCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.aggregate)
}

// Records returns the retained records, oldest first.
func (w *Window) Records() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	recs := make([]Record, len(w.entries))
	for i, e := range w.entries {
		recs[i] = e.rec
	}
	return recs
}
