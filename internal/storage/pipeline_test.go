package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/tremor/internal/stats"
)

func newTestPipeline(t *testing.T, root string, maxSegments int) (*Pipeline, *Window) {
	t.Helper()
	window := NewWindow(maxSegments)
	p := NewPipeline(window, PipelineConfig{
		Root: root,
	})
	return p, window
}

// flushSecond feeds one full second of samples through the pipeline.
func flushSecond(p *Pipeline, sec time.Time, n int) {
	p.Flush(testSegment(sec, n))
}

func TestPipelineRetentionScenario(t *testing.T) {
	root := t.TempDir()
	p, window := newTestPipeline(t, root, 3)
	a := NewArchive(root)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Three seconds at 800 Hz: three records, aggregate of 2400 rows.
	for i := 0; i < 3; i++ {
		flushSecond(p, base.Add(time.Duration(i)*time.Second), 800)
	}

	files, err := a.ListFiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 records, got %d", len(files))
	}
	for _, f := range files {
		if rows := recordRows(t, filepath.Join(root, f)); rows != 800 {
			t.Errorf("%s: expected 800 rows, got %d", f, rows)
		}
	}
	if rows := recordRows(t, filepath.Join(root, AggregateName)); rows != 2400 {
		t.Errorf("expected 2400 aggregate rows, got %d", rows)
	}

	// One more second: the oldest record is deleted, the window holds 3
	// again and the aggregate reflects only the newest 3 seconds.
	flushSecond(p, base.Add(3*time.Second), 800)

	oldest := filepath.Join(RecordDir(root, base), RecordName(base))
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Error("oldest record not deleted from storage")
	}
	if window.Len() != 3 {
		t.Errorf("expected window of 3, got %d", window.Len())
	}
	if rows := recordRows(t, filepath.Join(root, AggregateName)); rows != 2400 {
		t.Errorf("expected 2400 aggregate rows after eviction, got %d", rows)
	}

	files, _ = a.ListFiles()
	if len(files) != 3 {
		t.Errorf("expected 3 records on disk, got %d", len(files))
	}
}

func TestPipelineWriteFailureDropsSegment(t *testing.T) {
	root := t.TempDir()
	p, window := newTestPipeline(t, root, 3)

	// Make the root read-only so the record write fails.
	if err := os.Chmod(root, 0555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(root, 0755)

	flushSecond(p, time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC), 10)

	// The failed segment is dropped, not registered.
	if window.Len() != 0 {
		t.Errorf("failed write must not register a record, window=%d", window.Len())
	}
}

func TestPipelineFeedsMagnitudeStats(t *testing.T) {
	root := t.TempDir()
	window := NewWindow(3)
	mag := stats.NewMagnitude()
	p := NewPipeline(window, PipelineConfig{
		Root:      root,
		Magnitude: mag,
	})

	flushSecond(p, time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC), 50)

	if got := mag.Snapshot().Count; got != 50 {
		t.Errorf("expected 50 observations, got %d", got)
	}
}

func TestPipelineAsyncFlush(t *testing.T) {
	root := t.TempDir()
	window := NewWindow(5)
	p := NewPipeline(window, PipelineConfig{
		Root:         root,
		AsyncFlush:   true,
		FlushWorkers: 2,
	})

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		flushSecond(p, base.Add(time.Duration(i)*time.Second), 100)
	}
	p.Close()

	if window.Len() != 4 {
		t.Errorf("expected 4 records after close, got %d", window.Len())
	}
	if window.SampleCount() != 400 {
		t.Errorf("expected 400 retained samples, got %d", window.SampleCount())
	}

	files, err := NewArchive(root).ListFiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 4 {
		t.Errorf("expected 4 records on disk, got %d", len(files))
	}
}
