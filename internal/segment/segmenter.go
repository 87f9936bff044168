package segment

import "time"

// Flusher receives ownership of closed segments. Implementations must not
// assume the caller retains any reference to the segment after Flush.
type Flusher interface {
	Flush(*Segment)
}

// Segmenter buffers samples per wall-clock second, flushing a completed
// second as an atomic batch.
//
// Segmenter is not safe for concurrent use: it is owned by the single
// acquisition goroutine, which preserves strict sample ordering without
// locking on the hot path.
type Segmenter struct {
	rate    int
	flusher Flusher
	open    *Segment
}

// NewSegmenter returns a Segmenter that closes segments at either the
// second boundary or rate samples, whichever comes first.
func NewSegmenter(rate int, f Flusher) *Segmenter {
	return &Segmenter{rate: rate, flusher: f}
}

// Accept appends one sample. Crossing a second boundary closes the open
// segment and hands it to the flusher. Reaching the target rate within the
// same second flushes early and reopens a fresh segment for the same second
// key, so a fast-running driver produces extra records instead of losing
// samples.
func (s *Segmenter) Accept(t time.Time, magnitude float64) {
	sec := t.Truncate(time.Second)

	if s.open == nil {
		s.open = s.newSegment(sec)
	} else if !sec.Equal(s.open.Second) {
		s.flush()
		s.open = s.newSegment(sec)
	}

	s.open.Samples = append(s.open.Samples, Sample{
		Offset:    t.Sub(sec),
		Magnitude: magnitude,
	})

	if len(s.open.Samples) >= s.rate {
		closed := s.open
		s.open = s.newSegment(sec)
		s.flusher.Flush(closed)
	}
}

// FlushOpen force-closes the current segment even if its second has not
// elapsed. Used on shutdown so buffered samples are not lost.
func (s *Segmenter) FlushOpen() {
	s.flush()
	s.open = nil
}

// Buffered returns the sample count of the open segment.
func (s *Segmenter) Buffered() int {
	if s.open == nil {
		return 0
	}
	return len(s.open.Samples)
}

func (s *Segmenter) newSegment(sec time.Time) *Segment {
	return &Segment{
		Second:  sec,
		Samples: make([]Sample, 0, s.rate),
	}
}

// flush hands the open segment to the flusher. Empty segments are never
// flushed, so seconds with zero samples produce no record.
func (s *Segmenter) flush() {
	if s.open == nil || len(s.open.Samples) == 0 {
		return
	}
	s.flusher.Flush(s.open)
	s.open = nil
}
