// Package stream implements the newline-delimited JSON protocol that
// carries run events from the server to its clients.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/deixis/whitelabel/internal/runner"
)

// ContentType is the media type of a run stream.
const ContentType = "application/x-ndjson"

// ErrIncompleteRun is returned when a stream ends without a terminal event.
var ErrIncompleteRun = errors.New("run finished without reporting status")

// Encode returns ev as one ndjson line.
func Encode(ev runner.Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Encoder writes events as ndjson, flushing after each line when the
// underlying writer supports it.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
	fl http.Flusher
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	fl, _ := w.(http.Flusher)
	return &Encoder{w: w, fl: fl}
}

// Encode writes one event.
func (e *Encoder) Encode(ev runner.Event) error {
	line, err := Encode(ev)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if e.fl != nil {
		e.fl.Flush()
	}
	return nil
}

// Decoder reassembles events from arbitrarily split chunks. Lines that are
// not valid events are logged and skipped.
type Decoder struct {
	buf    []byte
	Logger *slog.Logger
}

// Feed appends chunk to the buffer and returns the events completed by it.
// A trailing fragment without a newline stays buffered.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)
	var events []Event
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		if ev, ok := d.parse(d.buf[:i]); ok {
			events = append(events, ev)
		}
		d.buf = d.buf[i+1:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return events
}

// Flush parses whatever remains buffered once the source is exhausted.
func (d *Decoder) Flush() []Event {
	rest := d.buf
	d.buf = nil
	if ev, ok := d.parse(rest); ok {
		return []Event{ev}
	}
	return nil
}

// Buffered returns the number of bytes held for an incomplete line.
func (d *Decoder) Buffered() int { return len(d.buf) }

func (d *Decoder) parse(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		d.logger().Warn("skipping malformed event line", "line", string(line), "error", err)
		return Event{}, false
	}
	return ev, true
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Event is an alias so callers of this package need not import runner.
type Event = runner.Event

// Decode reads r to the end, calling fn for every event in order. It stops
// early when ctx is done or fn returns an error.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, fn func(Event) error) error {
	buf := make([]byte, 32<<10)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range d.Feed(buf[:n]) {
				if ferr := fn(ev); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
	}
	for _, ev := range d.Flush() {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// Outcome is what a client learns from a complete run stream.
type Outcome struct {
	Log      string        // output text, stderr chunks prefixed with "[stderr] "
	Terminal *runner.Event // nil when the stream ended early
}

// Success reports whether the run exited with status 0.
func (o Outcome) Success() bool {
	return o.Terminal != nil && o.Terminal.Success()
}

// Status returns the one-line summary shown to users after a run.
func (o Outcome) Status() string {
	switch {
	case o.Terminal == nil:
		return "whitelabel.sh finished without reporting status."
	case o.Success():
		return "whitelabel.sh ran successfully."
	case o.Terminal.Kind == runner.KindError && o.Terminal.Message != "":
		return o.Terminal.Message
	default:
		return "whitelabel.sh exited with an error."
	}
}

// Collect reads a whole run stream. fn, when non-nil, sees each event as it
// arrives. It returns ErrIncompleteRun when no terminal event was seen.
func Collect(ctx context.Context, r io.Reader, logger *slog.Logger, fn func(Event)) (Outcome, error) {
	var (
		out Outcome
		log strings.Builder
	)
	d := &Decoder{Logger: logger}
	err := d.Decode(ctx, r, func(ev Event) error {
		if fn != nil {
			fn(ev)
		}
		switch ev.Kind {
		case runner.KindStdout:
			log.WriteString(ev.Text)
		case runner.KindStderr:
			log.WriteString(runner.StderrPrefix + ev.Text)
		case runner.KindError, runner.KindExit:
			if out.Terminal == nil {
				t := ev
				out.Terminal = &t
			}
		}
		return nil
	})
	out.Log = log.String()
	if err != nil {
		return out, err
	}
	if out.Terminal == nil {
		return out, ErrIncompleteRun
	}
	return out, nil
}
