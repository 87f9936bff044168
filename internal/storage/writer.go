// Package storage persists closed segments to the hierarchical archive and
// maintains the bounded retention window with its rolling aggregate file.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xtxerr/tremor/internal/logging"
	"github.com/xtxerr/tremor/internal/segment"
)

var log = logging.Component("storage")

const (
	// RecordExt is the segment record file extension.
	RecordExt = ".csv"

	// AggregateName is the aggregate file name under the archive root.
	AggregateName = "aggregate_data" + RecordExt

	tmpSuffix = ".tmp"
)

// recordHeader is the two-column table header shared by segment records and
// the aggregate file.
var recordHeader = []string{"Time (ms)", "Acceleration"}

// Record identifies one persisted segment file.
type Record struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the archive root.
	RelPath string

	// Second is the segment's second boundary.
	Second time.Time

	// Rows is the number of sample rows written.
	Rows int
}

// Writer serializes segments into the archive.
type Writer struct {
	root string
}

// NewWriter returns a writer rooted at the archive directory.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// RecordDir returns the directory for a second boundary:
// <root>/<YYYY>/<MM>/Week_<N>/<DD> where N is the week of the month.
func RecordDir(root string, sec time.Time) string {
	week := (sec.Day()-1)/7 + 1
	return filepath.Join(root,
		sec.Format("2006"),
		sec.Format("01"),
		fmt.Sprintf("Week_%d", week),
		sec.Format("02"))
}

// RecordName returns the base file name for a second boundary: HHMMSS plus
// the record extension. A second flushed more than once (early flush at the
// target rate, then the boundary flush) gets a numeric suffix on the later
// records, so every flush keeps its own file.
func RecordName(sec time.Time) string {
	return sec.Format("150405") + RecordExt
}

// Write serializes a closed segment to its record file and returns the
// record identity. The row count equals the segment's sample count exactly.
func (w *Writer) Write(seg *segment.Segment) (Record, error) {
	dir := RecordDir(w.root, seg.Second)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Record{}, fmt.Errorf("create record dir: %w", err)
	}

	base := seg.Second.Format("150405")
	path := filepath.Join(dir, base+RecordExt)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); err != nil {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, RecordExt))
	}

	if err := writeTable(path, seg.Samples); err != nil {
		return Record{}, err
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}

	return Record{
		Path:    path,
		RelPath: rel,
		Second:  seg.Second,
		Rows:    len(seg.Samples),
	}, nil
}

// writeTable writes the header row plus one row per sample in order.
func writeTable(path string, samples []segment.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(recordHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 2)
	for _, s := range samples {
		row[0] = segment.FormatOffset(s.Offset)
		row[1] = segment.FormatMagnitude(s.Magnitude)
		if err := cw.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
