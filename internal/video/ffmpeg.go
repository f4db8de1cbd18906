package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/Eyevinn/roi-tools/internal/frame"
	"github.com/sirupsen/logrus"
)

// stderrBuffer collects ffmpeg diagnostics while the process is running.
type stderrBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *stderrBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

// Decoder decodes the first video stream of a file into RGB24 frames by
// reading raw video from an ffmpeg child process.
type Decoder struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdout io.ReadCloser
	rd     *bufio.Reader
	stderr *stderrBuffer
	cur    *frame.Frame
	count  int
	done   bool
	closed bool
}

// OpenDecoder starts decoding path, whose frames must be width x height.
func OpenDecoder(ctx context.Context, ffmpeg, path string, width, height int) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, &StreamOpenError{Path: path, Err: fmt.Errorf("invalid frame size %dx%d", width, height)}
	}
	cmd := exec.CommandContext(ctx, ffmpeg, decoderArgs(path)...)
	stderr := &stderrBuffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StreamOpenError{Path: path, Err: fmt.Errorf("failed to get stdout pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &StreamOpenError{Path: path, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"width":  width,
		"height": height,
	}).Debug("started decoder")

	return &Decoder{
		path:   path,
		width:  width,
		height: height,
		cmd:    cmd,
		stdout: stdout,
		rd:     bufio.NewReaderSize(stdout, frame.SizeOf(width, height)),
		stderr: stderr,
		cur:    frame.New(width, height),
	}, nil
}

func decoderArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough", // one output frame per decoded frame
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
}

// Next returns the next decoded frame. The returned frame is reused by the
// following call. At end of stream Next returns io.EOF; a trailing partial
// frame counts as end of stream. If ffmpeg exits with an error, Next returns
// a *StreamOpenError when no frame was decoded and a decode error otherwise.
func (d *Decoder) Next() (*frame.Frame, error) {
	if d.done {
		return nil, io.EOF
	}
	_, err := io.ReadFull(d.rd, d.cur.Pix)
	if err == nil {
		d.count++
		return d.cur, nil
	}
	d.done = true
	if err == io.ErrUnexpectedEOF {
		logrus.WithFields(logrus.Fields{
			"path":  d.path,
			"frame": d.count,
		}).Warn("truncated frame at end of stream")
		err = io.EOF
	}
	if err != io.EOF {
		return nil, fmt.Errorf("reading frame %d of %s: %w", d.count, d.path, err)
	}
	if werr := d.wait(); werr != nil {
		if d.count == 0 {
			return nil, &StreamOpenError{Path: d.path, Err: werr}
		}
		return nil, fmt.Errorf("decoding %s after frame %d: %w", d.path, d.count, werr)
	}
	return nil, io.EOF
}

// Count is the number of frames returned so far.
func (d *Decoder) Count() int {
	return d.count
}

// Close stops the decoder, killing ffmpeg if frames are still pending.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.done = true
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}

func (d *Decoder) wait() error {
	d.closed = true
	err := d.cmd.Wait()
	if msg := d.stderr.String(); msg != "" {
		logrus.WithFields(logrus.Fields{
			"path": d.path,
		}).Warnf("ffmpeg decoder stderr: %s", msg)
	}
	if err != nil {
		if msg := d.stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// Encoder encodes RGB24 frames into a video file through an ffmpeg child
// process.
type Encoder struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *stderrBuffer
	count  int
	closed bool
}

// OpenEncoder creates the output file and starts an ffmpeg process encoding
// width x height frames at fps with the given codec.
func OpenEncoder(ctx context.Context, ffmpeg, path, codec string, fps float64, width, height int) (*Encoder, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, &OutputOpenError{Path: path, Err: fmt.Errorf("invalid stream parameters %dx%d @ %v fps", width, height, fps)}
	}
	// Fail before spawning ffmpeg if the destination is not writable.
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &OutputOpenError{Path: path, Err: err}
	}
	fh.Close()

	cmd := exec.CommandContext(ctx, ffmpeg, encoderArgs(path, codec, fps, width, height)...)
	stderr := &stderrBuffer{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &OutputOpenError{Path: path, Err: fmt.Errorf("failed to get stdin pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &OutputOpenError{Path: path, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"codec":  codec,
		"fps":    fps,
		"width":  width,
		"height": height,
	}).Debug("started encoder")

	return &Encoder{
		path:   path,
		width:  width,
		height: height,
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
	}, nil
}

func encoderArgs(path, codec string, fps float64, width, height int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-an",
		"-c:v", codec,
		"-pix_fmt", outputPixFmt(codec),
		path,
	}
}

// outputPixFmt keeps RGB for uncompressed output so that frames survive a
// round trip bit-exact.
func outputPixFmt(codec string) string {
	if codec == "rawvideo" {
		return "rgb24"
	}
	return "yuv420p"
}

// Write encodes f as the next frame.
func (e *Encoder) Write(f *frame.Frame) error {
	if e.closed {
		return errors.New("encoder is closed")
	}
	if f.Width != e.width || f.Height != e.height || !f.Valid() {
		return &frame.DimensionMismatchError{What: "output frame", Width: f.Width, Height: f.Height, WantW: e.width, WantH: e.height}
	}
	if _, err := e.stdin.Write(f.Pix); err != nil {
		if msg := e.stderr.String(); msg != "" {
			return fmt.Errorf("writing frame %d to ffmpeg: %w: %s", e.count, err, msg)
		}
		return fmt.Errorf("writing frame %d to ffmpeg: %w", e.count, err)
	}
	e.count++
	return nil
}

// Count is the number of frames written so far.
func (e *Encoder) Count() int {
	return e.count
}

// Close ends the input stream and waits for ffmpeg to finish the file.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	cerr := e.stdin.Close()
	err := e.cmd.Wait()
	msg := e.stderr.String()
	if msg != "" {
		logrus.WithFields(logrus.Fields{
			"path": e.path,
		}).Warnf("ffmpeg encoder stderr: %s", msg)
	}
	if err != nil {
		return fmt.Errorf("ffmpeg encoder failed: %w", err)
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return fmt.Errorf("closing encoder input: %w", cerr)
	}
	logrus.WithFields(logrus.Fields{
		"path":   e.path,
		"frames": e.count,
	}).Debug("encoder finished")
	return nil
}
