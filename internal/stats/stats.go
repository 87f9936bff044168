// Package stats maintains running magnitude statistics for status reporting.
package stats

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// relativeAccuracy is the DDSketch relative accuracy (1% error).
const relativeAccuracy = 0.01

// Magnitude keeps running statistics over observed magnitudes, including
// approximate percentiles via DDSketch.
type Magnitude struct {
	mu sync.Mutex

	count int64
	sum   float64
	min   float64
	max   float64

	// sketch is nil if construction failed; percentiles are then zero.
	sketch *ddsketch.DDSketch
}

// Summary is a point-in-time snapshot of the statistics.
type Summary struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// NewMagnitude creates an empty statistics accumulator.
func NewMagnitude() *Magnitude {
	m := &Magnitude{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if sketch, err := ddsketch.NewDefaultDDSketch(relativeAccuracy); err == nil {
		m.sketch = sketch
	}
	return m
}

// Observe records one magnitude value.
func (m *Magnitude) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.count++
	m.sum += v
	if v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
	if m.sketch != nil {
		m.sketch.Add(v)
	}
}

// Snapshot returns the current summary. An empty accumulator yields the
// zero Summary.
func (m *Magnitude) Snapshot() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return Summary{}
	}

	s := Summary{
		Count: m.count,
		Min:   m.min,
		Max:   m.max,
		Mean:  m.sum / float64(m.count),
	}

	if m.sketch != nil {
		if v, err := m.sketch.GetValueAtQuantile(0.50); err == nil {
			s.P50 = v
		}
		if v, err := m.sketch.GetValueAtQuantile(0.95); err == nil {
			s.P95 = v
		}
		if v, err := m.sketch.GetValueAtQuantile(0.99); err == nil {
			s.P99 = v
		}
	}

	return s
}
