// Package box reads and writes per-frame ROI bounding boxes.
//
// A box file is plain text with one "x1,y1,x2,y2" line per video frame, in
// frame order and without gaps. The line index is the frame index.
package box

import (
	"errors"

	"golang.org/x/exp/slices"
)

// ErrEmptySequence is returned when a composite run is requested with no boxes.
var ErrEmptySequence = errors.New("box sequence is empty")

// Sequence is an ordered, read-only list of boxes indexed by frame number.
type Sequence struct {
	rects []Rect
}

// NewSequence returns a sequence holding a copy of rects.
func NewSequence(rects ...Rect) Sequence {
	return Sequence{rects: slices.Clone(rects)}
}

func (s Sequence) Len() int { return len(s.rects) }

// Validate returns ErrEmptySequence if s holds no boxes.
func (s Sequence) Validate() error {
	if len(s.rects) == 0 {
		return ErrEmptySequence
	}
	return nil
}

// At returns the box for frame i. Frames past the end of the sequence reuse
// the last recorded box. At panics on an empty sequence or a negative index.
func (s Sequence) At(i int) Rect {
	if i >= len(s.rects) {
		i = len(s.rects) - 1
	}
	return s.rects[i]
}

// Held reports whether frame i is beyond the recorded boxes and is served by
// the last one.
func (s Sequence) Held(i int) bool {
	return i >= len(s.rects)
}

// Last returns the final recorded box and false if s is empty.
func (s Sequence) Last() (Rect, bool) {
	if len(s.rects) == 0 {
		return Rect{}, false
	}
	return s.rects[len(s.rects)-1], true
}

// Rects returns a copy of the boxes.
func (s Sequence) Rects() []Rect {
	return slices.Clone(s.rects)
}

// Bounds returns the smallest rectangle that covers every box in s, and
// false if s is empty.
func (s Sequence) Bounds() (Rect, bool) {
	if len(s.rects) == 0 {
		return Rect{}, false
	}
	b := s.rects[0]
	for _, r := range s.rects[1:] {
		if r.X1 < b.X1 {
			b.X1 = r.X1
		}
		if r.Y1 < b.Y1 {
			b.Y1 = r.Y1
		}
		if r.X2 > b.X2 {
			b.X2 = r.X2
		}
		if r.Y2 > b.Y2 {
			b.Y2 = r.Y2
		}
	}
	return b, true
}
