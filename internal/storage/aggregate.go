package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xtxerr/tremor/internal/segment"
)

// AggregateWriter materializes the retention window's samples into a single
// consolidated file. The aggregate is derived, disposable state: it can
// always be regenerated from the window and is never the source of truth.
//
// Rebuild is safe for concurrent use: each rebuild writes its own temp file
// and rebuilds are serialized, so the published file is always exactly one
// caller's version.
type AggregateWriter struct {
	mu   sync.Mutex
	path string
}

// NewAggregateWriter returns a writer targeting <root>/aggregate_data.csv.
func NewAggregateWriter(root string) *AggregateWriter {
	return &AggregateWriter{path: filepath.Join(root, AggregateName)}
}

// Path returns the aggregate file path.
func (a *AggregateWriter) Path() string {
	return a.path
}

// Rebuild writes the full sample slice to a temporary file and atomically
// renames it over the target, so a concurrent reader observes either the
// fully-previous or fully-new version, never a partial write. Rebuilding
// twice with unchanged input yields byte-identical output.
func (a *AggregateWriter) Rebuild(samples []segment.Sample) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create aggregate dir: %w", err)
	}

	f, err := os.CreateTemp(dir, AggregateName+tmpSuffix)
	if err != nil {
		return fmt.Errorf("create aggregate temp: %w", err)
	}
	tmp := f.Name()
	f.Close()

	if err := writeTable(tmp, samples); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, a.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace aggregate: %w", err)
	}
	return nil
}
