package stats

import (
	"math"
	"testing"
)

func TestMagnitudeEmpty(t *testing.T) {
	m := NewMagnitude()

	s := m.Snapshot()
	if s.Count != 0 || s.Min != 0 || s.Max != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestMagnitudeSummary(t *testing.T) {
	m := NewMagnitude()

	for i := 1; i <= 100; i++ {
		m.Observe(float64(i))
	}

	s := m.Snapshot()
	if s.Count != 100 {
		t.Errorf("expected count 100, got %d", s.Count)
	}
	if s.Min != 1 {
		t.Errorf("expected min 1, got %f", s.Min)
	}
	if s.Max != 100 {
		t.Errorf("expected max 100, got %f", s.Max)
	}
	if math.Abs(s.Mean-50.5) > 1e-9 {
		t.Errorf("expected mean 50.5, got %f", s.Mean)
	}

	// DDSketch guarantees 1% relative accuracy; allow 5% slop.
	if math.Abs(s.P50-50) > 5 {
		t.Errorf("p50 out of tolerance: %f", s.P50)
	}
	if math.Abs(s.P95-95) > 5 {
		t.Errorf("p95 out of tolerance: %f", s.P95)
	}
	if math.Abs(s.P99-99) > 5 {
		t.Errorf("p99 out of tolerance: %f", s.P99)
	}
}

func TestMagnitudeSingleValue(t *testing.T) {
	m := NewMagnitude()
	m.Observe(1.5)

	s := m.Snapshot()
	if s.Count != 1 || s.Min != 1.5 || s.Max != 1.5 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if math.Abs(s.P50-1.5) > 0.1 {
		t.Errorf("p50 out of tolerance: %f", s.P50)
	}
}
