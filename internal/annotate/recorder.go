package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/roi-tools/internal/box"
	"github.com/sirupsen/logrus"
)

// Event is one scripted operator action. The cursor moves to (X, Y) when frame
// Frame is shown; Keys are pressed after that frame's box is recorded, as if
// typed while the frame was on screen.
type Event struct {
	Frame int    `json:"frame"`
	X     *int   `json:"x,omitempty"`
	Y     *int   `json:"y,omitempty"`
	Keys  string `json:"keys,omitempty"`
}

// ReadEvents decodes a stream of JSON events. Frame numbers must not decrease.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	dec := json.NewDecoder(r)
	for {
		var e Event
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", len(events)+1, err)
		}
		if e.Frame < 0 {
			return nil, fmt.Errorf("event %d: negative frame %d", len(events)+1, e.Frame)
		}
		if n := len(events); n > 0 && e.Frame < events[n-1].Frame {
			return nil, fmt.Errorf("event %d: frame %d before frame %d", n+1, e.Frame, events[n-1].Frame)
		}
		events = append(events, e)
	}
	return events, nil
}

// Record plays events against s for up to frames frames and writes one box
// per frame to w. Recording ends early when a 'q' key is played. It returns
// the number of boxes written.
func Record(ctx context.Context, s *Session, events []Event, frames int, w *box.Writer) (int, error) {
	next := 0
	written := 0
	for idx := 0; idx < frames; idx++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		var keys []rune
		for next < len(events) && events[next].Frame == idx {
			e := events[next]
			x, y := s.CursorX, s.CursorY
			if e.X != nil {
				x = *e.X
			}
			if e.Y != nil {
				y = *e.Y
			}
			s.MoveCursor(x, y)
			keys = append(keys, []rune(e.Keys)...)
			next++
		}

		if err := w.Write(s.Box()); err != nil {
			return written, fmt.Errorf("writing box for frame %d: %w", idx, err)
		}
		written++

		for _, k := range keys {
			if s.ApplyKey(k) {
				logrus.WithFields(logrus.Fields{
					"frame": idx,
				}).Info("Annotation stopped by operator")
				return written, nil
			}
		}
	}
	if next < len(events) {
		logrus.WithFields(logrus.Fields{
			"ignored": len(events) - next,
			"frames":  frames,
		}).Warn("Events after the last frame were ignored")
	}
	return written, nil
}
