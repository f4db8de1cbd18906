package frame

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/stretchr/testify/require"
)

var (
	red  = Color{255, 0, 0}
	blue = Color{0, 0, 255}
)

func solid(w, h int, c Color) *Frame {
	f := New(w, h)
	f.Fill(c)
	return f
}

func noise(w, h int, seed int64) *Frame {
	f := New(w, h)
	rand.New(rand.NewSource(seed)).Read(f.Pix)
	return f
}

// requireComposite checks that out equals hq inside r and bg everywhere else.
func requireComposite(t *testing.T, out, hq, bg *Frame, r box.Rect) {
	t.Helper()
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			want := bg.At(x, y)
			if r.Contains(x, y) {
				want = hq.At(x, y)
			}
			if out.At(x, y) != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v (rect %v)", x, y, out.At(x, y), want, r)
			}
		}
	}
}

func TestMergeSolidColors(t *testing.T) {
	hq := solid(100, 100, red)
	bg := solid(100, 100, blue)
	out, err := Merge(Pair{HQ: hq, BG: bg}, box.NewRect(0, 0, 50, 50), 100, 100)
	require.NoError(t, err)
	require.Equal(t, red, out.At(0, 0))
	require.Equal(t, red, out.At(49, 49))
	require.Equal(t, blue, out.At(50, 49))
	require.Equal(t, blue, out.At(49, 50))
	require.Equal(t, blue, out.At(99, 99))
	requireComposite(t, out, hq, bg, box.NewRect(0, 0, 50, 50))
}

func TestMergeRandomRects(t *testing.T) {
	const w, h = 37, 23
	hq := noise(w, h, 1)
	bg := noise(w, h, 2)
	rnd := rand.New(rand.NewSource(42))
	dst := New(w, h)
	for i := 0; i < 200; i++ {
		x1 := rnd.Intn(w)
		y1 := rnd.Intn(h)
		r := box.NewRect(x1, y1, x1+1+rnd.Intn(w-x1), y1+1+rnd.Intn(h-y1))
		used, err := MergeInto(dst, Pair{Index: i, HQ: hq, BG: bg}, r, w, h)
		require.NoError(t, err)
		require.Equal(t, r, used)
		requireComposite(t, dst, hq, bg, r)
	}
}

func TestMergeClampsOutOfFrame(t *testing.T) {
	const w, h = 20, 10
	hq := noise(w, h, 3)
	bg := noise(w, h, 4)
	testCases := []struct {
		name string
		rect box.Rect
		want box.Rect
	}{
		{"degenerate", box.NewRect(5, 5, 5, 5), box.NewRect(5, 5, 6, 6)},
		{"negative", box.NewRect(-10, -10, -5, -5), box.NewRect(0, 0, 1, 1)},
		{"overflowing", box.NewRect(15, 5, 40, 40), box.NewRect(15, 5, w, h)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := New(w, h)
			used, err := MergeInto(dst, Pair{HQ: hq, BG: bg}, tc.rect, w, h)
			require.NoError(t, err)
			require.Equal(t, tc.want, used)
			requireComposite(t, dst, hq, bg, tc.want)
		})
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	hq := noise(8, 8, 5)
	bg := noise(8, 8, 6)
	hqCopy, bgCopy := hq.Clone(), bg.Clone()
	_, err := Merge(Pair{HQ: hq, BG: bg}, box.NewRect(2, 2, 6, 6), 8, 8)
	require.NoError(t, err)
	require.Equal(t, hqCopy.Pix, hq.Pix)
	require.Equal(t, bgCopy.Pix, bg.Pix)
}

func TestMergeDimensionMismatch(t *testing.T) {
	hq := New(10, 10)
	bg := New(10, 12)
	_, err := Merge(Pair{HQ: hq, BG: bg}, box.NewRect(0, 0, 5, 5), 10, 10)
	var dme *DimensionMismatchError
	require.True(t, errors.As(err, &dme))
	require.Equal(t, "background frame", dme.What)

	_, err = MergeInto(New(4, 4), Pair{HQ: hq, BG: hq}, box.NewRect(0, 0, 5, 5), 10, 10)
	require.True(t, errors.As(err, &dme))
	require.Equal(t, "output frame", dme.What)

	_, err = Merge(Pair{HQ: hq, BG: hq}, box.NewRect(0, 0, 5, 5), 0, 10)
	require.Error(t, err)
}

func TestFrameHelpers(t *testing.T) {
	f := New(4, 3)
	require.True(t, f.Valid())
	require.Equal(t, 36, f.Size())
	f.FillRect(box.NewRect(1, 1, 3, 2), red)
	require.Equal(t, Color{}, f.At(0, 0))
	require.Equal(t, red, f.At(1, 1))
	require.Equal(t, red, f.At(2, 1))
	require.Equal(t, Color{}, f.At(3, 1))
	c := f.Clone()
	c.Set(0, 0, blue)
	require.Equal(t, Color{}, f.At(0, 0))
	require.True(t, f.SameSize(c))
}

func TestMergeShortPixelBuffer(t *testing.T) {
	bg := solid(4, 4, blue)
	bg.Pix = bg.Pix[:len(bg.Pix)-1]
	require.False(t, bg.Valid())
	_, err := Merge(Pair{HQ: solid(4, 4, red), BG: bg}, box.NewRect(0, 0, 2, 2), 4, 4)
	var dme *DimensionMismatchError
	require.True(t, errors.As(err, &dme))
	require.Equal(t, "background frame", dme.What)
}
