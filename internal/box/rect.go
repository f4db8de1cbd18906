package box

import "fmt"

// Rect is a region of interest in pixel coordinates. (X1, Y1) is the top-left
// corner and (X2, Y2) the exclusive bottom-right corner.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewRect returns the rectangle (x1, y1, x2, y2).
func NewRect(x1, y1, x2, y2 int) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width and Height are the extent of r; they are zero or negative when r is empty.
func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

// Contains reports whether pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

// In reports whether r is non-empty and lies fully inside a width x height frame.
func (r Rect) In(width, height int) bool {
	return !r.Empty() && r.X1 >= 0 && r.Y1 >= 0 && r.X2 <= width && r.Y2 <= height
}

// Clamp shrinks r to fit a width x height frame. The result always covers at
// least one pixel, so a box that is partially or fully out of frame still
// selects a region instead of dropping the frame. Clamping a rectangle that is
// already inside the frame returns it unchanged.
func (r Rect) Clamp(width, height int) Rect {
	x1 := clamp(r.X1, 0, width-1)
	y1 := clamp(r.Y1, 0, height-1)
	return Rect{
		X1: x1,
		Y1: y1,
		X2: clamp(r.X2, x1+1, width),
		Y2: clamp(r.Y2, y1+1, height),
	}
}

// String returns the serialized form used in box files.
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
