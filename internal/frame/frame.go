// Package frame holds decoded raster frames and the ROI merge.
package frame

import (
	"fmt"

	"github.com/Eyevinn/roi-tools/internal/box"
)

// BytesPerPixel of the packed RGB24 layout used throughout the pipeline.
const BytesPerPixel = 3

// Color is an RGB24 pixel.
type Color [BytesPerPixel]byte

// Frame is a packed RGB24 raster with stride Width*BytesPerPixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Pair is the high-quality and background frame decoded at the same index.
type Pair struct {
	Index int
	HQ    *Frame
	BG    *Frame
}

// SizeOf is the byte size of a width x height frame.
func SizeOf(width, height int) int {
	return width * height * BytesPerPixel
}

// New allocates a black width x height frame.
func New(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]byte, SizeOf(width, height))}
}

// Size is the byte size of f.
func (f *Frame) Size() int {
	return SizeOf(f.Width, f.Height)
}

// Stride is the byte length of a row.
func (f *Frame) Stride() int {
	return f.Width * BytesPerPixel
}

// Valid reports whether Pix matches the declared dimensions.
func (f *Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Size()
}

// SameSize reports whether f and o have equal dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) Color {
	i := y*f.Stride() + x*BytesPerPixel
	return Color{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, c Color) {
	i := y*f.Stride() + x*BytesPerPixel
	copy(f.Pix[i:i+BytesPerPixel], c[:])
}

// Fill paints the whole frame with c.
func (f *Frame) Fill(c Color) {
	f.FillRect(box.NewRect(0, 0, f.Width, f.Height), c)
}

// FillRect paints r, clamped to the frame, with c.
func (f *Frame) FillRect(r box.Rect, c Color) {
	r = r.Clamp(f.Width, f.Height)
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			f.Set(x, y, c)
		}
	}
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// DimensionMismatchError reports frames or streams whose sizes differ from
// what the merge expects.
type DimensionMismatchError struct {
	What          string
	Width, Height int
	WantW, WantH  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s is %dx%d, expected %dx%d", e.What, e.Width, e.Height, e.WantW, e.WantH)
}
