// Package composite rebuilds a video from a high-quality and a background
// encoding of the same footage, taking each frame's ROI from the former and
// everything else from the latter.
package composite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/Eyevinn/roi-tools/internal/frame"
	"github.com/Eyevinn/roi-tools/internal/video"
	"github.com/sirupsen/logrus"
)

// DefaultProgressInterval is the number of frames between progress reports.
const DefaultProgressInterval = 30

// InputNotFoundError reports a required input file that does not exist.
type InputNotFoundError struct {
	What string
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.What, e.Path)
}

// Options configures a composite run.
type Options struct {
	HQPath           string
	BGPath           string
	OutPath          string
	BoxPath          string
	Codec            string
	FFmpeg           string
	FFprobe          string
	ProgressInterval int
}

// Stats summarises a run.
type Stats struct {
	Frames        int     `json:"frames"`
	Boxes         int     `json:"boxes"`
	HeldFrames    int     `json:"heldFrames"`
	ClampedFrames int     `json:"clampedFrames"`
	TotalFrames   int     `json:"totalFrames"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FPS           float64 `json:"fps"`
	Encoded       int     `json:"encoded"`
}

// PairSource is the input side of the composite loop.
type PairSource interface {
	Next() (*frame.Pair, error)
	Width() int
	Height() int
	TotalFrames() int
}

// CheckInputs verifies that every input file exists.
func CheckInputs(o Options) error {
	for _, in := range []struct{ what, path string }{
		{"annotated video", o.HQPath},
		{"background video", o.BGPath},
		{"box file", o.BoxPath},
	} {
		if _, err := os.Stat(in.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &InputNotFoundError{What: in.what, Path: in.path}
			}
			return fmt.Errorf("checking %s: %w", in.what, err)
		}
	}
	return nil
}

// Run performs a full composite: it loads the boxes, opens both inputs and
// the output, and merges every frame pair until either input ends.
func Run(ctx context.Context, o Options) (Stats, error) {
	if err := CheckInputs(o); err != nil {
		return Stats{}, err
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}

	log := logrus.WithFields(logrus.Fields{
		"function": "Run",
		"output":   o.OutPath,
	})

	seq, err := box.Load(o.BoxPath)
	if err != nil {
		return Stats{}, err
	}
	if err := seq.Validate(); err != nil {
		return Stats{}, err
	}
	log.WithField("boxes", seq.Len()).Info("Loaded bounding boxes")

	reader, err := video.OpenPair(ctx, video.NewProber(o.FFprobe), o.FFmpeg, o.HQPath, o.BGPath)
	if err != nil {
		return Stats{}, err
	}
	defer reader.Close()
	log.WithFields(logrus.Fields{
		"width":  reader.Width(),
		"height": reader.Height(),
		"fps":    reader.FPS(),
		"frames": reader.TotalFrames(),
	}).Info("Opened input videos")

	enc, err := video.OpenEncoder(ctx, o.FFmpeg, o.OutPath, o.Codec, reader.FPS(), reader.Width(), reader.Height())
	if err != nil {
		return Stats{}, err
	}

	stats, err := Composite(ctx, seq, reader, enc, o.ProgressInterval)
	stats.FPS = reader.FPS()
	if cerr := enc.Close(); err == nil && cerr != nil {
		err = cerr
	}
	stats.Encoded = enc.Count()
	if err != nil {
		return stats, err
	}

	log.WithField("frames", stats.Frames).Info("Composited frames")
	return stats, nil
}

// Composite merges pairs from src into sink until src is exhausted. Frame i
// uses box i of seq, or the last box once the sequence runs out. The caller
// owns src and sink.
func Composite(ctx context.Context, seq box.Sequence, src PairSource, sink video.Sink, progressInterval int) (Stats, error) {
	stats := Stats{
		Boxes:       seq.Len(),
		TotalFrames: src.TotalFrames(),
		Width:       src.Width(),
		Height:      src.Height(),
	}
	if err := seq.Validate(); err != nil {
		return stats, err
	}
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}

	out := frame.New(stats.Width, stats.Height)
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		pair, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading frame pair %d: %w", idx, err)
		}

		rect := seq.At(idx)
		used, err := frame.MergeInto(out, *pair, rect, stats.Width, stats.Height)
		if err != nil {
			return stats, fmt.Errorf("merging frame %d: %w", idx, err)
		}
		if err := sink.Write(out); err != nil {
			return stats, fmt.Errorf("writing frame %d: %w", idx, err)
		}

		stats.Frames++
		if seq.Held(idx) {
			stats.HeldFrames++
		}
		if used != rect {
			stats.ClampedFrames++
		}
		if stats.Frames%progressInterval == 0 {
			reportProgress(stats)
		}
	}
	return stats, nil
}

func reportProgress(s Stats) {
	fields := logrus.Fields{
		"frames": s.Frames,
		"total":  s.TotalFrames,
	}
	if s.TotalFrames > 0 {
		fields["progress"] = fmt.Sprintf("%.1f%%", 100*float64(s.Frames)/float64(s.TotalFrames))
	}
	logrus.WithFields(fields).Info("Compositing")
}
