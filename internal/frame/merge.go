package frame

import (
	"fmt"

	"github.com/Eyevinn/roi-tools/internal/box"
)

// Merge builds a new output frame from p: the background everywhere except
// inside the clamped rect, where the high-quality pixels are copied verbatim.
func Merge(p Pair, rect box.Rect, width, height int) (*Frame, error) {
	dst := New(width, height)
	if _, err := MergeInto(dst, p, rect, width, height); err != nil {
		return nil, err
	}
	return dst, nil
}

// MergeInto is Merge writing into dst, which must be a width x height frame
// and may be reused between calls. It returns the clamped rect that was
// copied from the high-quality frame.
//
// The ROI border is a hard cut on the pixel grid. There is no blending.
func MergeInto(dst *Frame, p Pair, rect box.Rect, width, height int) (box.Rect, error) {
	if width <= 0 || height <= 0 {
		return box.Rect{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if p.HQ == nil || p.BG == nil || dst == nil {
		return box.Rect{}, fmt.Errorf("merge of frame %d: missing frame", p.Index)
	}
	for _, c := range []struct {
		what string
		f    *Frame
	}{{"high-quality frame", p.HQ}, {"background frame", p.BG}, {"output frame", dst}} {
		if c.f.Width != width || c.f.Height != height || !c.f.Valid() {
			return box.Rect{}, &DimensionMismatchError{
				What: c.what, Width: c.f.Width, Height: c.f.Height, WantW: width, WantH: height,
			}
		}
	}

	r := rect.Clamp(width, height)
	copy(dst.Pix, p.BG.Pix)

	stride := width * BytesPerPixel
	lo := r.X1 * BytesPerPixel
	hi := r.X2 * BytesPerPixel
	for y := r.Y1; y < r.Y2; y++ {
		row := y * stride
		copy(dst.Pix[row+lo:row+hi], p.HQ.Pix[row+lo:row+hi])
	}
	return r, nil
}
