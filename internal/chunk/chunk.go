// Package chunk splits outgoing text into ordered, size-bounded segments that
// a chat channel can transmit one by one.
//
// Splitting is lossless: concatenating the bodies of the returned segments in
// index order reproduces the input byte for byte. Whole lines are kept
// together whenever they fit; only a line longer than the limit is cut.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Segment is one ordered slice of an outgoing message.
type Segment struct {
	Index int    `json:"index"` // 0-based position
	Total int    `json:"total"` // number of segments in the message
	Body  string `json:"body"`  // len(Body) <= max segment size
}

// Continuation reports whether the segment follows an earlier one.
func (s Segment) Continuation() bool {
	return s.Index > 0
}

// InvalidChunkSizeError reports a non-positive maximum segment size.
type InvalidChunkSizeError struct {
	Size int
}

func (e *InvalidChunkSizeError) Error() string {
	return fmt.Sprintf("invalid chunk size %d: must be > 0", e.Size)
}

// Writer splits text using a fixed, validated maximum segment size.
type Writer struct {
	maxSize int
}

// NewWriter returns a Writer bound to maxSize.
func NewWriter(maxSize int) (*Writer, error) {
	if maxSize <= 0 {
		return nil, &InvalidChunkSizeError{Size: maxSize}
	}
	return &Writer{maxSize: maxSize}, nil
}

// MaxSize returns the configured segment size limit in bytes.
func (w *Writer) MaxSize() int {
	return w.maxSize
}

// Split splits text; see the package-level Split.
func (w *Writer) Split(text string) []Segment {
	return split(text, w.maxSize)
}

// Split breaks text into segments of at most maxSize bytes.
//
// Lines (including their trailing newline) are packed greedily. A single line
// longer than maxSize is hard-cut at the maxSize byte boundary; if that
// boundary falls inside a UTF-8 sequence the cut moves back to the start of
// the sequence. The remainder of a cut line starts the next segment and may
// be packed with the lines that follow it.
//
// Empty text yields no segments.
func Split(text string, maxSize int) ([]Segment, error) {
	if maxSize <= 0 {
		return nil, &InvalidChunkSizeError{Size: maxSize}
	}
	return split(text, maxSize), nil
}

func split(text string, maxSize int) []Segment {
	if text == "" {
		return nil
	}

	var bodies []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			bodies = append(bodies, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}

		if current.Len()+len(line) <= maxSize {
			current.WriteString(line)
			continue
		}

		flush()

		for len(line) > maxSize {
			cut := cutPoint(line, maxSize)
			bodies = append(bodies, line[:cut])
			line = line[cut:]
		}
		current.WriteString(line)
	}
	flush()

	segments := make([]Segment, len(bodies))
	for i, body := range bodies {
		segments[i] = Segment{Index: i, Total: len(bodies), Body: body}
	}
	return segments
}

// cutPoint returns the byte offset at which to hard-cut s, never larger than
// maxSize and never zero.
func cutPoint(s string, maxSize int) int {
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// A single rune wider than maxSize; cut inside it.
		return maxSize
	}
	return cut
}

// Join reassembles segment bodies in index order.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Body)
	}
	return b.String()
}
