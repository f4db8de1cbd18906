package box

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MalformedRecordError reports a non-blank box file line that is not four
// comma-separated integers.
type MalformedRecordError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed box record at line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Load reads a box file. Blank lines are skipped and the first malformed line
// aborts loading. Coordinates are not range checked here; out-of-frame and
// negative values are clamped when the box is applied to a frame.
func Load(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sequence{}, fmt.Errorf("opening box file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads box records from r.
func Parse(r io.Reader) (Sequence, error) {
	var rects []Rect
	sc := bufio.NewScanner(r)
	lineNr := 0
	for sc.Scan() {
		lineNr++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rect, err := ParseRecord(line)
		if err != nil {
			return Sequence{}, &MalformedRecordError{Line: lineNr, Text: line, Err: err}
		}
		rects = append(rects, rect)
	}
	if err := sc.Err(); err != nil {
		return Sequence{}, fmt.Errorf("reading box records: %w", err)
	}
	return Sequence{rects: rects}, nil
}

// ParseRecord parses a single "x1,y1,x2,y2" record.
func ParseRecord(line string) (Rect, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("want 4 fields, got %d", len(parts))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v[i] = n
	}
	return NewRect(v[0], v[1], v[2], v[3]), nil
}

// Writer appends box records, one line per frame.
type Writer struct {
	w     *bufio.Writer
	c     io.Closer
	count int
	err   error
}

// NewWriter returns a Writer on w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	bw := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		bw.c = c
	}
	return bw
}

// Create truncates or creates the box file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating box file: %w", err)
	}
	return NewWriter(f), nil
}

// Write appends the record for the next frame. After the first failure all
// further writes are no-ops and the error is returned again.
func (w *Writer) Write(r Rect) error {
	if w.err != nil {
		return w.err
	}
	if _, err := fmt.Fprintf(w.w, "%d,%d,%d,%d\n", r.X1, r.Y1, r.X2, r.Y2); err != nil {
		w.err = err
		return err
	}
	w.count++
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered records and closes the underlying file.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.err == nil {
		w.err = err
	}
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Save writes seq to path.
func Save(path string, seq Sequence) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, r := range seq.rects {
		if err := w.Write(r); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
