// Package annotate records an operator-driven ROI as one box per frame.
//
// The operator controls a box centred on the cursor and may resize it from
// the keyboard. Rendering and input capture are left to the caller; this
// package holds the state and turns it into box records.
package annotate

import (
	"github.com/Eyevinn/roi-tools/internal/box"
)

const (
	DefaultBoxSize = 100
	ResizeStep     = 10
	MinBoxSize     = 10
)

// Session is the mutable annotation state for one video.
type Session struct {
	FrameWidth  int
	FrameHeight int
	BoxWidth    int
	BoxHeight   int
	CursorX     int
	CursorY     int
}

// NewSession starts with a 100x100 box at the top-left corner.
func NewSession(frameWidth, frameHeight int) *Session {
	return &Session{
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		BoxWidth:    DefaultBoxSize,
		BoxHeight:   DefaultBoxSize,
	}
}

// MoveCursor sets the box centre.
func (s *Session) MoveCursor(x, y int) {
	s.CursorX, s.CursorY = x, y
}

// ApplyKey handles a resize key and reports whether the key asks to stop.
// w/s grow and shrink the height, d/a grow and shrink the width.
func (s *Session) ApplyKey(k rune) (quit bool) {
	switch k {
	case 'q':
		return true
	case 'w':
		s.BoxHeight += ResizeStep
	case 's':
		s.BoxHeight = shrink(s.BoxHeight)
	case 'd':
		s.BoxWidth += ResizeStep
	case 'a':
		s.BoxWidth = shrink(s.BoxWidth)
	}
	return false
}

func shrink(v int) int {
	v -= ResizeStep
	if v < MinBoxSize {
		return MinBoxSize
	}
	return v
}

// Box returns the current box. Each corner is kept on a pixel of the frame.
func (s *Session) Box() box.Rect {
	halfW := s.BoxWidth / 2
	halfH := s.BoxHeight / 2
	return box.NewRect(
		within(s.CursorX-halfW, s.FrameWidth-1),
		within(s.CursorY-halfH, s.FrameHeight-1),
		within(s.CursorX+halfW, s.FrameWidth-1),
		within(s.CursorY+halfH, s.FrameHeight-1),
	)
}

func within(v, hi int) int {
	if v > hi {
		v = hi
	}
	if v < 0 {
		v = 0
	}
	return v
}
