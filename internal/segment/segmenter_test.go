package segment

import (
	"testing"
	"time"
)

// collector records flushed segments.
type collector struct {
	flushed []*Segment
}

func (c *collector) Flush(seg *Segment) {
	c.flushed = append(c.flushed, seg)
}

func TestSegmenterSecondRollover(t *testing.T) {
	c := &collector{}
	s := NewSegmenter(800, c)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Two samples in second 0, one in second 1.
	s.Accept(base.Add(1250*time.Microsecond), 1.0)
	s.Accept(base.Add(2500*time.Microsecond), 1.1)
	s.Accept(base.Add(time.Second), 1.2)

	if len(c.flushed) != 1 {
		t.Fatalf("expected 1 flushed segment, got %d", len(c.flushed))
	}

	seg := c.flushed[0]
	if !seg.Second.Equal(base) {
		t.Errorf("expected second %v, got %v", base, seg.Second)
	}
	if len(seg.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(seg.Samples))
	}
	if seg.Samples[0].Offset != 1250*time.Microsecond {
		t.Errorf("unexpected first offset: %s", seg.Samples[0].Offset)
	}
	if s.Buffered() != 1 {
		t.Errorf("expected 1 buffered sample in new second, got %d", s.Buffered())
	}
}

func TestSegmenterEarlyFlushSameSecond(t *testing.T) {
	c := &collector{}
	rate := 10
	s := NewSegmenter(rate, c)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Driver running fast: 15 samples within one second.
	for i := 0; i < 15; i++ {
		s.Accept(base.Add(time.Duration(i)*time.Millisecond), 1.0)
	}

	// Rate overshoot flushes early and reopens the same second key.
	if len(c.flushed) != 1 {
		t.Fatalf("expected 1 early flush, got %d", len(c.flushed))
	}
	if len(c.flushed[0].Samples) != rate {
		t.Errorf("expected %d samples in early flush, got %d", rate, len(c.flushed[0].Samples))
	}
	if !c.flushed[0].Second.Equal(base) {
		t.Errorf("early flush changed second key")
	}
	if s.Buffered() != 5 {
		t.Errorf("expected 5 buffered after early flush, got %d", s.Buffered())
	}

	// The reopened segment keeps the same key and flushes on rollover.
	s.Accept(base.Add(time.Second), 1.0)
	if len(c.flushed) != 2 {
		t.Fatalf("expected 2 flushes after rollover, got %d", len(c.flushed))
	}
	if !c.flushed[1].Second.Equal(base) {
		t.Errorf("expected second flush for same key %v, got %v", base, c.flushed[1].Second)
	}
}

func TestSegmenterFlushOpen(t *testing.T) {
	c := &collector{}
	s := NewSegmenter(800, c)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 350; i++ {
		s.Accept(base.Add(time.Duration(i)*time.Millisecond), 1.0)
	}

	// Mid-second stop: the buffered samples are flushed as-is.
	s.FlushOpen()

	if len(c.flushed) != 1 {
		t.Fatalf("expected 1 flushed segment, got %d", len(c.flushed))
	}
	if len(c.flushed[0].Samples) != 350 {
		t.Errorf("expected 350 samples, got %d", len(c.flushed[0].Samples))
	}
	if s.Buffered() != 0 {
		t.Errorf("expected empty buffer after FlushOpen, got %d", s.Buffered())
	}
}

func TestSegmenterEmptyNeverFlushed(t *testing.T) {
	c := &collector{}
	s := NewSegmenter(800, c)

	// No samples accepted: nothing to flush.
	s.FlushOpen()

	if len(c.flushed) != 0 {
		t.Errorf("expected no flushes for empty segmenter, got %d", len(c.flushed))
	}
}

func TestSegmenterRowCountsExact(t *testing.T) {
	c := &collector{}
	rate := 800
	s := NewSegmenter(rate, c)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	interval := time.Second / time.Duration(rate)

	// Three full seconds at exactly the target rate.
	for sec := 0; sec < 3; sec++ {
		for i := 0; i < rate; i++ {
			s.Accept(base.Add(time.Duration(sec)*time.Second+time.Duration(i)*interval), 1.0)
		}
	}
	s.FlushOpen()

	if len(c.flushed) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(c.flushed))
	}
	for i, seg := range c.flushed {
		if len(seg.Samples) != rate {
			t.Errorf("segment %d: expected %d samples, got %d", i, rate, len(seg.Samples))
		}
	}
}
