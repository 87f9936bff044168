package storage

import (
	"testing"
	"time"

	"github.com/xtxerr/tremor/internal/segment"
)

func mkSamples(n int, mag float64) []segment.Sample {
	samples := make([]segment.Sample, n)
	for i := range samples {
		samples[i] = segment.Sample{
			Offset:    time.Duration(i) * time.Millisecond,
			Magnitude: mag,
		}
	}
	return samples
}

func mkRecord(i int) Record {
	sec := time.Date(2026, 8, 23, 12, 0, i, 0, time.UTC)
	return Record{
		Path:    "/tmp/" + RecordName(sec),
		RelPath: RecordName(sec),
		Second:  sec,
	}
}

func TestWindowRegisterWithinCapacity(t *testing.T) {
	w := NewWindow(3)

	for i := 0; i < 3; i++ {
		agg, evicted := w.Register(mkRecord(i), mkSamples(10, float64(i)))
		if len(evicted) != 0 {
			t.Errorf("register %d: unexpected eviction", i)
		}
		if len(agg) != (i+1)*10 {
			t.Errorf("register %d: expected aggregate %d, got %d", i, (i+1)*10, len(agg))
		}
	}

	if w.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", w.Len())
	}
	if w.SampleCount() != 30 {
		t.Errorf("expected 30 samples, got %d", w.SampleCount())
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)

	for i := 0; i < 3; i++ {
		w.Register(mkRecord(i), mkSamples(10, float64(i)))
	}

	agg, evicted := w.Register(mkRecord(3), mkSamples(10, 3))

	if len(evicted) != 1 {
		t.Fatalf("expected 1 eviction, got %d", len(evicted))
	}
	if !evicted[0].Second.Equal(mkRecord(0).Second) {
		t.Errorf("expected oldest record evicted, got %v", evicted[0].Second)
	}
	if w.Len() != 3 {
		t.Errorf("window exceeded capacity: %d", w.Len())
	}

	// Aggregate equals the concatenation of the retained records' samples.
	if len(agg) != 30 {
		t.Fatalf("expected aggregate of 30, got %d", len(agg))
	}
	for i, s := range agg {
		want := float64(1 + i/10)
		if s.Magnitude != want {
			t.Fatalf("aggregate[%d]: expected magnitude %f, got %f", i, want, s.Magnitude)
		}
	}
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	w := NewWindow(5)

	// Burst registration, as when a slow writer catches up.
	for i := 0; i < 50; i++ {
		w.Register(mkRecord(i), mkSamples(7, float64(i)))
		if w.Len() > 5 {
			t.Fatalf("register %d: window over capacity: %d", i, w.Len())
		}
		if w.SampleCount() != min(i+1, 5)*7 {
			t.Fatalf("register %d: aggregate out of sync: %d", i, w.SampleCount())
		}
	}
}

func TestWindowVariableSegmentSizes(t *testing.T) {
	w := NewWindow(2)

	w.Register(mkRecord(0), mkSamples(800, 0))
	w.Register(mkRecord(1), mkSamples(350, 1))
	agg, evicted := w.Register(mkRecord(2), mkSamples(120, 2))

	if len(evicted) != 1 {
		t.Fatalf("expected 1 eviction, got %d", len(evicted))
	}
	// The evicted record's 800 samples drop; 350+120 remain.
	if len(agg) != 470 {
		t.Errorf("expected 470 aggregate samples, got %d", len(agg))
	}
	if agg[0].Magnitude != 1 {
		t.Errorf("expected head of aggregate from record 1, got magnitude %f", agg[0].Magnitude)
	}
}

func TestWindowRecordsOrder(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 5; i++ {
		w.Register(mkRecord(i), mkSamples(1, 0))
	}

	recs := w.Records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if !recs[i].Second.After(recs[i-1].Second) {
			t.Errorf("records not oldest-first at %d", i)
		}
	}
}
