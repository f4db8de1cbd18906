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

%s produces a compressed background video by re-encoding the input at low
quality everywhere except a region of interest. The region is either an ffmpeg
expression x:y:w:h or, with -boxes, the extent of all boxes in a box file.
`

func parseOptions() internal.Options {
	def := video.DefaultCompressOptions()
	opts := internal.Options{}
	flag.StringVar(&opts.Region, "region", def.ROI.String(), "region kept sharper, as x:y:w:h")
	flag.StringVar(&opts.BoxPath, "boxes", "", "use the extent of the boxes in this file as region")
	flag.StringVar(&opts.Codec, "codec", def.Codec, "ffmpeg video encoder")
	flag.IntVar(&opts.CRF, "crf", def.CRF, "constant rate factor outside the region")
	flag.Float64Var(&opts.QOffset, "qoffset", def.QOffset, "quantizer offset inside the region (-1.0 to 1.0)")
	flag.BoolVar(&opts.Indent, "indent", false, "indent JSON output")
	flag.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	flag.BoolVar(&opts.Version, "version", false, "print version")

	internal.Usage(usg, "input_video output_video")
	flag.Parse()
	return opts
}

type compressResult struct {
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	Region  string  `json:"region"`
	Codec   string  `json:"codec"`
	CRF     int     `json:"crf"`
	QOffset float64 `json:"qoffset"`
}

func main() {
	cfg := config.Load()
	o, args := internal.ParseParams("roi-compress", parseOptions, 2)
	internal.SetupLogging(cfg.LogLevel, o.Verbose)

	ctx, cancel := internal.SignalContext()
	defer cancel()

	if err := run(ctx, os.Stdout, cfg, o, args); err != nil {
		logrus.WithField("error", err).Error("Compression failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, o internal.Options, args []string) error {
	res, err := compress(ctx, cfg, o, args[0], args[1])
	jp := &internal.JsonPrinter{W: w, Indent: o.Indent}
	jp.PrintReport("roi-compress", res, err)
	if err != nil {
		return err
	}
	return jp.Error()
}

func compress(ctx context.Context, cfg *config.Config, o internal.Options, in, out string) (compressResult, error) {
	roi, err := selectROI(ctx, cfg, o, in)
	if err != nil {
		return compressResult{}, err
	}
	co := video.CompressOptions{Codec: o.Codec, CRF: o.CRF, QOffset: o.QOffset, ROI: roi}
	if err := video.Compress(ctx, cfg.FFmpegPath, in, out, co); err != nil {
		return compressResult{}, err
	}
	return compressResult{
		Input: in, Output: out, Region: roi.String(),
		Codec: co.Codec, CRF: co.CRF, QOffset: co.QOffset,
	}, nil
}

// selectROI returns the region given on the command line, or the extent of
// the box file clamped to the input frame.
func selectROI(ctx context.Context, cfg *config.Config, o internal.Options, in string) (video.ROI, error) {
	if o.BoxPath == "" {
		return video.ParseROI(o.Region)
	}
	seq, err := box.Load(o.BoxPath)
	if err != nil {
		return video.ROI{}, err
	}
	bounds, ok := seq.Bounds()
	if !ok {
		return video.ROI{}, box.ErrEmptySequence
	}
	info, err := video.NewProber(cfg.FFprobePath).Probe(ctx, in)
	if err != nil {
		return video.ROI{}, err
	}
	return video.RectROI(bounds.Clamp(info.Width, info.Height)), nil
}
