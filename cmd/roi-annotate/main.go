package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/roi-tools/internal"
	"github.com/Eyevinn/roi-tools/internal/annotate"
	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/Eyevinn/roi-tools/internal/config"
	"github.com/Eyevinn/roi-tools/internal/video"
	"github.com/sirupsen/logrus"
)

var usg = `Usage of %s:

%s records one ROI box per frame of a video into a box file.
The operator is replayed from an event script of JSON objects such as
  {"frame": 0, "x": 320, "y": 240}
  {"frame": 12, "keys": "wwd"}
where x/y move the box centre and keys resize it (w/s height, d/a width, q stop).
`

func parseOptions() internal.Options {
	opts := internal.Options{}
	flag.StringVar(&opts.Events, "events", "-", "event script (- for stdin)")
	flag.StringVar(&opts.OutPath, "out", "bounding_boxes.txt", "box file to write")
	flag.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
	flag.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	flag.BoolVar(&opts.Version, "version", false, "print version")

	internal.Usage(usg, "video")
	flag.Parse()
	return opts
}

type annotateResult struct {
	Video  video.Info `json:"video"`
	Boxes  int        `json:"boxes"`
	Output string     `json:"output"`
}

func main() {
	cfg := config.Load()
	o, args := internal.ParseParams("roi-annotate", parseOptions, 1)
	internal.SetupLogging(cfg.LogLevel, o.Verbose)

	ctx, cancel := internal.SignalContext()
	defer cancel()

	var events io.Reader
	if o.Events == "-" {
		events = os.Stdin
	} else {
		fh, err := os.Open(o.Events)
		if err != nil {
			logrus.WithField("error", err).Fatal("Cannot open event script")
		}
		defer fh.Close()
		events = fh
	}

	if err := run(ctx, os.Stdout, events, cfg, o, args[0]); err != nil {
		logrus.WithField("error", err).Error("Annotation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, events io.Reader, cfg *config.Config, o internal.Options, videoPath string) error {
	res, err := annotateVideo(ctx, events, cfg, o, videoPath)
	jp := &internal.JsonPrinter{W: w, Indent: o.Indent}
	jp.PrintReport("roi-annotate", res, err)
	if err != nil {
		return err
	}
	return jp.Error()
}

func annotateVideo(ctx context.Context, events io.Reader, cfg *config.Config, o internal.Options, videoPath string) (annotateResult, error) {
	if !internal.FileExists(videoPath) {
		return annotateResult{}, fmt.Errorf("%s not found", videoPath)
	}
	info, err := video.NewProber(cfg.FFprobePath).Probe(ctx, videoPath)
	if err != nil {
		return annotateResult{}, err
	}
	if info.FrameCount <= 0 {
		if info.FrameCount, err = countFrames(ctx, cfg, info); err != nil {
			return annotateResult{}, err
		}
	}

	evs, err := annotate.ReadEvents(events)
	if err != nil {
		return annotateResult{}, err
	}

	bw, err := box.Create(o.OutPath)
	if err != nil {
		return annotateResult{}, err
	}
	n, err := annotate.Record(ctx, annotate.NewSession(info.Width, info.Height), evs, info.FrameCount, bw)
	if cerr := bw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return annotateResult{}, err
	}

	logrus.WithFields(logrus.Fields{
		"boxes":  n,
		"output": o.OutPath,
	}).Info("Recorded bounding boxes")
	return annotateResult{Video: info, Boxes: n, Output: o.OutPath}, nil
}

// countFrames decodes the whole video when its container does not state the
// number of frames.
func countFrames(ctx context.Context, cfg *config.Config, info video.Info) (int, error) {
	dec, err := video.OpenDecoder(ctx, cfg.FFmpegPath, info.Path, info.Width, info.Height)
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	for {
		if _, err := dec.Next(); err != nil {
			if err == io.EOF {
				return dec.Count(), nil
			}
			return 0, err
		}
	}
}
