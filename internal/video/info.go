// Package video decodes input videos into raw frames, pairs them up and
// encodes composited frames, using ffmpeg child processes for the codec work
// and in-process container parsing for stream metadata.
package video

import (
	"fmt"

	"github.com/Eyevinn/roi-tools/internal/frame"
)

// Info describes the video stream of a file.
type Info struct {
	Path       string  `json:"path"`
	Container  string  `json:"container"`
	Codec      string  `json:"codec,omitempty"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frameCount"`
}

func (i Info) complete() bool {
	return i.Width > 0 && i.Height > 0 && i.FPS > 0
}

// fill copies fields that are unset in i from o.
func (i *Info) fill(o Info) {
	if i.Codec == "" {
		i.Codec = o.Codec
	}
	if i.Width <= 0 || i.Height <= 0 {
		i.Width, i.Height = o.Width, o.Height
	}
	if i.FPS <= 0 {
		i.FPS = o.FPS
	}
	if i.FrameCount <= 0 {
		i.FrameCount = o.FrameCount
	}
}

// StreamOpenError is returned when an input video cannot be opened or decoded.
type StreamOpenError struct {
	Path string
	Err  error
}

func (e *StreamOpenError) Error() string {
	return fmt.Sprintf("cannot open video %s: %v", e.Path, e.Err)
}

func (e *StreamOpenError) Unwrap() error { return e.Err }

// OutputOpenError is returned when the output video cannot be created.
type OutputOpenError struct {
	Path string
	Err  error
}

func (e *OutputOpenError) Error() string {
	return fmt.Sprintf("cannot open output video %s: %v", e.Path, e.Err)
}

func (e *OutputOpenError) Unwrap() error { return e.Err }

// Source yields decoded frames in order. Next returns io.EOF after the last frame.
type Source interface {
	Next() (*frame.Frame, error)
	Close() error
}

// Sink accepts frames in presentation order.
type Sink interface {
	Write(f *frame.Frame) error
	Close() error
}
