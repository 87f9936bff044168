// Package segment buffers magnitude samples into per-second batches.
//
// A Segment collects the samples of one wall-clock second. The Segmenter
// owns the open segment; on close, ownership transfers to the flusher and
// the segment becomes read-only archival data.
package segment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sample is one magnitude reading within a second.
// Immutable once created.
type Sample struct {
	// Offset is the sub-second offset from the owning segment's second
	// boundary, at microsecond resolution.
	Offset time.Duration

	// Magnitude is the Euclidean norm of the acceleration vector in g.
	Magnitude float64
}

// Segment holds the ordered samples of a single wall-clock second.
type Segment struct {
	// Second is the wall-clock second boundary (truncated to whole seconds).
	Second time.Time

	// Samples are in arrival order.
	Samples []Sample
}

// FormatOffset encodes a sub-second offset as milliseconds with up to four
// fractional digits, trailing zeros and dot stripped, suffixed "ms"
// (e.g. "3.2122ms", "5ms"). This trades absolute-timestamp storage cost
// for compactness; consumers recombine offset and file-derived base time.
func FormatOffset(d time.Duration) string {
	ms := float64(d.Nanoseconds()) / 1e6
	s := strconv.FormatFloat(ms, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + "ms"
}

// ParseOffset decodes an offset produced by FormatOffset.
func ParseOffset(s string) (time.Duration, error) {
	v, ok := strings.CutSuffix(s, "ms")
	if !ok {
		return 0, fmt.Errorf("offset %q missing ms suffix", s)
	}
	ms, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse offset %q: %w", s, err)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// FormatMagnitude encodes a magnitude rounded to four decimals.
func FormatMagnitude(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
