package video

import (
	"context"
	"fmt"
	"io"

	"github.com/Eyevinn/roi-tools/internal/frame"
)

// PairReader decodes a high-quality and a background stream in lock-step.
// Stream properties are those of the high-quality stream.
type PairReader struct {
	hq    Source
	bg    Source
	info  Info
	index int
	done  bool
}

// NewPairReader pairs two already opened sources. info describes hq.
func NewPairReader(hq, bg Source, info Info) *PairReader {
	return &PairReader{hq: hq, bg: bg, info: info}
}

// OpenPair probes both videos, checks that their frame sizes agree and starts
// decoding them.
func OpenPair(ctx context.Context, p *Prober, ffmpeg, hqPath, bgPath string) (*PairReader, error) {
	hqInfo, err := p.Probe(ctx, hqPath)
	if err != nil {
		return nil, err
	}
	bgInfo, err := p.Probe(ctx, bgPath)
	if err != nil {
		return nil, err
	}
	if hqInfo.Width != bgInfo.Width || hqInfo.Height != bgInfo.Height {
		return nil, &frame.DimensionMismatchError{
			What:  fmt.Sprintf("background video %s", bgPath),
			Width: bgInfo.Width, Height: bgInfo.Height,
			WantW: hqInfo.Width, WantH: hqInfo.Height,
		}
	}

	hq, err := OpenDecoder(ctx, ffmpeg, hqPath, hqInfo.Width, hqInfo.Height)
	if err != nil {
		return nil, err
	}
	bg, err := OpenDecoder(ctx, ffmpeg, bgPath, bgInfo.Width, bgInfo.Height)
	if err != nil {
		hq.Close()
		return nil, err
	}
	return NewPairReader(hq, bg, hqInfo), nil
}

// Next returns the next pair of frames, or io.EOF as soon as either stream is
// exhausted. Once one stream has ended neither stream is read again.
func (r *PairReader) Next() (*frame.Pair, error) {
	if r.done {
		return nil, io.EOF
	}
	hq, err := r.hq.Next()
	if err != nil {
		r.done = true
		return nil, err
	}
	bg, err := r.bg.Next()
	if err != nil {
		r.done = true
		return nil, err
	}
	if !hq.SameSize(bg) {
		r.done = true
		return nil, &frame.DimensionMismatchError{
			What:  fmt.Sprintf("background frame %d", r.index),
			Width: bg.Width, Height: bg.Height,
			WantW: hq.Width, WantH: hq.Height,
		}
	}
	p := &frame.Pair{Index: r.index, HQ: hq, BG: bg}
	r.index++
	return p, nil
}

func (r *PairReader) Info() Info       { return r.info }
func (r *PairReader) Width() int       { return r.info.Width }
func (r *PairReader) Height() int      { return r.info.Height }
func (r *PairReader) FPS() float64     { return r.info.FPS }
func (r *PairReader) TotalFrames() int { return r.info.FrameCount }

// Close closes both sources.
func (r *PairReader) Close() error {
	herr := r.hq.Close()
	berr := r.bg.Close()
	if herr != nil {
		return herr
	}
	return berr
}
