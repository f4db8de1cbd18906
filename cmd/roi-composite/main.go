package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/Eyevinn/roi-tools/internal"
	"github.com/Eyevinn/roi-tools/internal/composite"
	"github.com/Eyevinn/roi-tools/internal/config"
	"github.com/sirupsen/logrus"
)

// boxFile is read from the working directory.
const boxFile = "bounding_boxes.txt"

var usg = `Usage of %s:

%s composites a high-quality ROI from the annotated video onto the compressed
background video, using one box per frame from bounding_boxes.txt.
Frames beyond the last box reuse the last box. Output stops at the end of the
shorter input.
`

func parseOptions(cfg *config.Config) internal.OptionParseFunc {
	return func() internal.Options {
		opts := internal.Options{BoxPath: boxFile}
		flag.StringVar(&opts.Codec, "codec", cfg.Codec, "ffmpeg video encoder for the output")
		flag.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
		flag.BoolVar(&opts.Verbose, "v", false, "verbose logging")
		flag.BoolVar(&opts.Version, "version", false, "print version")

		internal.Usage(usg, "annotated_video compressed_background output_video")
		flag.Parse()
		return opts
	}
}

func main() {
	cfg := config.Load()
	o, args := internal.ParseParams("roi-composite", parseOptions(cfg), 3)
	internal.SetupLogging(cfg.LogLevel, o.Verbose)

	ctx, cancel := internal.SignalContext()
	defer cancel()

	if err := run(ctx, os.Stdout, cfg, o, args); err != nil {
		logrus.WithField("error", err).Error("Composite failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, o internal.Options, args []string) error {
	opts := composite.Options{
		HQPath:           args[0],
		BGPath:           args[1],
		OutPath:          args[2],
		BoxPath:          o.BoxPath,
		Codec:            o.Codec,
		FFmpeg:           cfg.FFmpegPath,
		FFprobe:          cfg.FFprobePath,
		ProgressInterval: cfg.ProgressInterval,
	}
	stats, err := composite.Run(ctx, opts)

	jp := &internal.JsonPrinter{W: w, Indent: o.Indent}
	jp.PrintReport("roi-composite", stats, err)
	if err != nil {
		return err
	}
	return jp.Error()
}
