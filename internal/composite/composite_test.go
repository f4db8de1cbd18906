package composite

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/Eyevinn/roi-tools/internal/frame"
	"github.com/Eyevinn/roi-tools/internal/video"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var (
	c1 = frame.Color{200, 10, 10}
	c2 = frame.Color{10, 10, 200}
)

// fakePairs yields n pairs of solid frames, HQ in c1 and BG in c2.
type fakePairs struct {
	w, h  int
	n     int
	calls int
}

func (f *fakePairs) Next() (*frame.Pair, error) {
	f.calls++
	if f.calls > f.n {
		return nil, io.EOF
	}
	hq := frame.New(f.w, f.h)
	hq.Fill(c1)
	bg := frame.New(f.w, f.h)
	bg.Fill(c2)
	return &frame.Pair{Index: f.calls - 1, HQ: hq, BG: bg}, nil
}

func (f *fakePairs) Width() int       { return f.w }
func (f *fakePairs) Height() int      { return f.h }
func (f *fakePairs) TotalFrames() int { return f.n }

// countingSource yields black 8x8 frames and counts Next calls.
type countingSource struct {
	frames int
	calls  int
}

func (s *countingSource) Next() (*frame.Frame, error) {
	s.calls++
	if s.calls > s.frames {
		return nil, io.EOF
	}
	return frame.New(8, 8), nil
}

func (s *countingSource) Close() error { return nil }

// recordingSink keeps a copy of every written frame.
type recordingSink struct {
	frames []*frame.Frame
	failAt int
}

func (s *recordingSink) Write(f *frame.Frame) error {
	if s.failAt > 0 && len(s.frames)+1 == s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, f.Clone())
	return nil
}

func (s *recordingSink) Close() error { return nil }

func requireROI(t *testing.T, f *frame.Frame, r box.Rect) {
	t.Helper()
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			want := c2
			if r.Contains(x, y) {
				want = c1
			}
			if got := f.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCompositeTwoFrames(t *testing.T) {
	seq, err := box.Parse(strings.NewReader("0,0,50,50\n0,0,50,50\n"))
	require.NoError(t, err)
	src := &fakePairs{w: 100, h: 100, n: 2}
	sink := &recordingSink{}

	stats, err := Composite(context.Background(), seq, src, sink, 30)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Frames)
	require.Equal(t, 0, stats.HeldFrames)
	require.Equal(t, 0, stats.ClampedFrames)
	require.Len(t, sink.frames, 2)
	for _, f := range sink.frames {
		requireROI(t, f, box.NewRect(0, 0, 50, 50))
	}
}

func TestCompositeHoldsLastBox(t *testing.T) {
	seq := box.NewSequence(box.NewRect(0, 0, 10, 10), box.NewRect(20, 20, 40, 40))
	src := &fakePairs{w: 64, h: 48, n: 6}
	sink := &recordingSink{}

	stats, err := Composite(context.Background(), seq, src, sink, 30)
	require.NoError(t, err)
	require.Equal(t, 6, stats.Frames)
	require.Equal(t, 4, stats.HeldFrames)
	requireROI(t, sink.frames[0], box.NewRect(0, 0, 10, 10))
	for i := 1; i < 6; i++ {
		requireROI(t, sink.frames[i], box.NewRect(20, 20, 40, 40))
	}
}

func TestCompositeStopsAtShorterStream(t *testing.T) {
	seq := box.NewSequence(box.NewRect(0, 0, 4, 4))
	hq := &countingSource{frames: 3}
	bg := &countingSource{frames: 5}
	src := video.NewPairReader(hq, bg, video.Info{Width: 8, Height: 8, FPS: 25, FrameCount: 3})
	sink := &recordingSink{}

	stats, err := Composite(context.Background(), seq, src, sink, 30)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Frames)
	require.Len(t, sink.frames, 3)
	require.Equal(t, 4, hq.calls)
	require.Equal(t, 3, bg.calls)
}

func TestCompositeClampsBoxes(t *testing.T) {
	seq := box.NewSequence(box.NewRect(-10, -10, -5, -5), box.NewRect(90, 90, 500, 500), box.NewRect(5, 5, 5, 5))
	src := &fakePairs{w: 100, h: 100, n: 3}
	sink := &recordingSink{}

	stats, err := Composite(context.Background(), seq, src, sink, 30)
	require.NoError(t, err)
	require.Equal(t, 3, stats.ClampedFrames)
	requireROI(t, sink.frames[0], box.NewRect(0, 0, 1, 1))
	requireROI(t, sink.frames[1], box.NewRect(90, 90, 100, 100))
	requireROI(t, sink.frames[2], box.NewRect(5, 5, 6, 6))
}

func TestCompositeEmptySequence(t *testing.T) {
	src := &fakePairs{w: 8, h: 8, n: 2}
	_, err := Composite(context.Background(), box.NewSequence(), src, &recordingSink{}, 30)
	require.ErrorIs(t, err, box.ErrEmptySequence)
	require.Equal(t, 0, src.calls)
}

func TestCompositeWriteError(t *testing.T) {
	seq := box.NewSequence(box.NewRect(0, 0, 4, 4))
	sink := &recordingSink{failAt: 2}
	stats, err := Composite(context.Background(), seq, &fakePairs{w: 8, h: 8, n: 5}, sink, 30)
	require.Error(t, err)
	require.Equal(t, 1, stats.Frames)
}

func TestCompositeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := box.NewSequence(box.NewRect(0, 0, 4, 4))
	_, err := Composite(ctx, seq, &fakePairs{w: 8, h: 8, n: 5}, &recordingSink{}, 30)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompositeProgress(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	seq := box.NewSequence(box.NewRect(0, 0, 4, 4))
	_, err := Composite(context.Background(), seq, &fakePairs{w: 8, h: 8, n: 95}, &recordingSink{}, 30)
	require.NoError(t, err)

	var reported []int
	for _, e := range hook.AllEntries() {
		if e.Message == "Compositing" {
			require.Equal(t, logrus.InfoLevel, e.Level)
			reported = append(reported, e.Data["frames"].(int))
		}
	}
	require.Equal(t, []int{30, 60, 90}, reported)
}

func TestRunMissingInputs(t *testing.T) {
	dir := t.TempDir()
	hq := filepath.Join(dir, "hq.mp4")
	bg := filepath.Join(dir, "bg.mp4")
	boxes := filepath.Join(dir, "bounding_boxes.txt")
	require.NoError(t, os.WriteFile(hq, []byte("x"), 0644))

	o := Options{HQPath: hq, BGPath: bg, BoxPath: boxes, OutPath: filepath.Join(dir, "out.mp4")}
	_, err := Run(context.Background(), o)
	var inf *InputNotFoundError
	require.True(t, errors.As(err, &inf))
	require.Equal(t, bg, inf.Path)

	require.NoError(t, os.WriteFile(bg, []byte("x"), 0644))
	_, err = Run(context.Background(), o)
	require.True(t, errors.As(err, &inf))
	require.Equal(t, boxes, inf.Path)
	_, statErr := os.Stat(o.OutPath)
	require.True(t, os.IsNotExist(statErr), "no output should be created")
}

func TestRunMalformedBoxes(t *testing.T) {
	dir := t.TempDir()
	o := Options{
		HQPath:  filepath.Join(dir, "hq.mp4"),
		BGPath:  filepath.Join(dir, "bg.mp4"),
		BoxPath: filepath.Join(dir, "bounding_boxes.txt"),
		OutPath: filepath.Join(dir, "out.mp4"),
	}
	require.NoError(t, os.WriteFile(o.HQPath, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(o.BGPath, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(o.BoxPath, []byte("0,0,10,10\n1,2,3\n"), 0644))

	_, err := Run(context.Background(), o)
	var mre *box.MalformedRecordError
	require.True(t, errors.As(err, &mre))
	require.Equal(t, 2, mre.Line)

	require.NoError(t, os.WriteFile(o.BoxPath, []byte("\n  \n"), 0644))
	_, err = Run(context.Background(), o)
	require.ErrorIs(t, err, box.ErrEmptySequence)
}

// TestRunEndToEnd needs ffmpeg and ffprobe on PATH. It uses uncompressed
// video so that the output can be compared pixel for pixel.
func TestRunEndToEnd(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
	ctx := context.Background()
	dir := t.TempDir()
	o := Options{
		HQPath:  filepath.Join(dir, "annotated.nut"),
		BGPath:  filepath.Join(dir, "background.nut"),
		BoxPath: filepath.Join(dir, "bounding_boxes.txt"),
		OutPath: filepath.Join(dir, "output.nut"),
		Codec:   "rawvideo",
		FFmpeg:  "ffmpeg",
		FFprobe: "ffprobe",
	}
	writeSolid(t, o.HQPath, c1, 2)
	writeSolid(t, o.BGPath, c2, 3)
	require.NoError(t, os.WriteFile(o.BoxPath, []byte("0,0,50,50\n0,0,50,50\n"), 0644))

	stats, err := Run(ctx, o)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Frames)
	require.Equal(t, 100, stats.Width)
	require.Equal(t, 2, stats.Encoded)

	dec, err := video.OpenDecoder(ctx, "ffmpeg", o.OutPath, 100, 100)
	require.NoError(t, err)
	defer dec.Close()
	for i := 0; i < 2; i++ {
		f, err := dec.Next()
		require.NoError(t, err)
		requireROI(t, f, box.NewRect(0, 0, 50, 50))
	}
	_, err = dec.Next()
	require.Equal(t, io.EOF, err)
}

func writeSolid(t *testing.T, path string, c frame.Color, n int) {
	t.Helper()
	enc, err := video.OpenEncoder(context.Background(), "ffmpeg", path, "rawvideo", 25, 100, 100)
	require.NoError(t, err)
	f := frame.New(100, 100)
	f.Fill(c)
	for i := 0; i < n; i++ {
		require.NoError(t, enc.Write(f))
	}
	require.NoError(t, enc.Close())
}

// brokenSource yields n black 8x8 frames and then fails.
type brokenSource struct {
	n     int
	calls int
}

func (s *brokenSource) Next() (*frame.Frame, error) {
	s.calls++
	if s.calls > s.n {
		return nil, errors.New("corrupt packet")
	}
	return frame.New(8, 8), nil
}

func (s *brokenSource) Close() error { return nil }

func TestCompositeDecodeFailure(t *testing.T) {
	src := video.NewPairReader(&brokenSource{n: 2}, &countingSource{frames: 10}, video.Info{Width: 8, Height: 8, FPS: 25})
	sink := &recordingSink{}
	stats, err := Composite(context.Background(), box.NewSequence(box.NewRect(0, 0, 4, 4)), src, sink, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "corrupt packet")
	require.Equal(t, 2, stats.Frames)
	require.Len(t, sink.frames, 2)
}
