package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/sirupsen/logrus"
)

// ROI is a region given as ffmpeg expressions, so that it may refer to the
// input size through iw and ih.
type ROI struct {
	X, Y, W, H string
}

// RightHalf keeps the right half of the picture in high quality.
var RightHalf = ROI{X: "iw/2", Y: "0", W: "iw/2", H: "ih"}

// RectROI returns the region covered by r.
func RectROI(r box.Rect) ROI {
	return ROI{
		X: strconv.Itoa(r.X1),
		Y: strconv.Itoa(r.Y1),
		W: strconv.Itoa(r.Width()),
		H: strconv.Itoa(r.Height()),
	}
}

// ParseROI parses "x:y:w:h".
func ParseROI(s string) (ROI, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return ROI{}, fmt.Errorf("region %q: want x:y:w:h", s)
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return ROI{}, fmt.Errorf("region %q: empty field %d", s, i+1)
		}
	}
	return ROI{X: parts[0], Y: parts[1], W: parts[2], H: parts[3]}, nil
}

func (r ROI) String() string {
	return strings.Join([]string{r.X, r.Y, r.W, r.H}, ":")
}

// CompressOptions control the differential compression of a background video.
type CompressOptions struct {
	Codec   string
	CRF     int
	QOffset float64 // negative values raise the quality inside the ROI
	ROI     ROI
}

// DefaultCompressOptions give a heavily compressed picture with the right
// half kept sharper.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		Codec:   "libx264",
		CRF:     51,
		QOffset: -1.0,
		ROI:     RightHalf,
	}
}

func compressArgs(in, out string, o CompressOptions) []string {
	filter := fmt.Sprintf("addroi=x=%s:y=%s:w=%s:h=%s:qoffset=%s",
		o.ROI.X, o.ROI.Y, o.ROI.W, o.ROI.H, strconv.FormatFloat(o.QOffset, 'f', 1, 64))
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", in,
		"-vf", filter,
		"-c:v", o.Codec,
		"-crf", strconv.Itoa(o.CRF),
		out,
	}
}

// Compress re-encodes in to out at low quality everywhere except the ROI,
// producing a background video for compositing.
func Compress(ctx context.Context, ffmpeg, in, out string, o CompressOptions) error {
	if _, err := os.Stat(in); err != nil {
		return &StreamOpenError{Path: in, Err: err}
	}
	fh, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &OutputOpenError{Path: out, Err: err}
	}
	fh.Close()

	log := logrus.WithFields(logrus.Fields{
		"input":  in,
		"output": out,
		"roi":    o.ROI.String(),
		"crf":    o.CRF,
	})
	log.Info("Starting differential compression")

	cmd := exec.CommandContext(ctx, ffmpeg, compressArgs(in, out, o)...)
	stderr := &stderrBuffer{}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg compression failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg compression failed: %w", err)
	}
	log.Info("Compression completed")
	return nil
}
