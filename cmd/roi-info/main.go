package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/Eyevinn/roi-tools/internal"
	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/Eyevinn/roi-tools/internal/config"
	"github.com/Eyevinn/roi-tools/internal/video"
	"github.com/sirupsen/logrus"
)

var usg = `Usage of %s:

%s lists stream information about videos, e.g. container, codec, size, frame rate
and frame count. With -boxes it also checks a box file against the first video.
`

func parseOptions() internal.Options {
	opts := internal.Options{}
	flag.StringVar(&opts.BoxPath, "boxes", "", "box file to check against the first video")
	flag.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
	flag.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	flag.BoolVar(&opts.Version, "version", false, "print version")

	internal.Usage(usg, "video [video ...]")
	flag.Parse()
	return opts
}

type boxInfo struct {
	Path        string   `json:"path"`
	Boxes       int      `json:"boxes"`
	HeldFrames  int      `json:"heldFrames"`
	OutOfFrame  int      `json:"outOfFrame"`
	First       box.Rect `json:"first"`
	Last        box.Rect `json:"last"`
	FrameCount  int      `json:"frameCount"`
	ExtraBoxes  int      `json:"extraBoxes,omitempty"`
	Compatible  bool     `json:"compatible"`
	Description string   `json:"description,omitempty"`
}

func main() {
	cfg := config.Load()
	o, args := internal.ParseParams("roi-info", parseOptions, 1)
	internal.SetupLogging(cfg.LogLevel, o.Verbose)

	ctx, cancel := internal.SignalContext()
	defer cancel()

	if err := run(ctx, os.Stdout, cfg, o, args); err != nil {
		logrus.WithField("error", err).Fatal("roi-info failed")
	}
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, o internal.Options, paths []string) error {
	jp := &internal.JsonPrinter{W: w, Indent: o.Indent}
	p := video.NewProber(cfg.FFprobePath)
	infos := make([]video.Info, 0, len(paths))
	for _, path := range paths {
		info, err := p.Probe(ctx, path)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		jp.Print(info, true)
	}

	if o.BoxPath != "" {
		seq, err := box.Load(o.BoxPath)
		if err != nil {
			return err
		}
		jp.Print(describeBoxes(o.BoxPath, seq, infos[0]), true)
	}
	return jp.Error()
}

// describeBoxes reports how a box sequence lines up with a video.
func describeBoxes(path string, seq box.Sequence, v video.Info) boxInfo {
	bi := boxInfo{Path: path, Boxes: seq.Len(), FrameCount: v.FrameCount}
	if seq.Validate() != nil {
		bi.Description = "no boxes"
		return bi
	}
	bi.Compatible = true
	bi.First = seq.At(0)
	bi.Last, _ = seq.Last()
	for _, r := range seq.Rects() {
		if !r.In(v.Width, v.Height) {
			bi.OutOfFrame++
		}
	}
	switch {
	case v.FrameCount > seq.Len():
		bi.HeldFrames = v.FrameCount - seq.Len()
		bi.Description = "last box is held for the remaining frames"
	case v.FrameCount > 0 && v.FrameCount < seq.Len():
		bi.ExtraBoxes = seq.Len() - v.FrameCount
		bi.Description = "boxes beyond the last frame are unused"
	}
	return bi
}
