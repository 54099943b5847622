// Package report keeps transcripts of finished script runs so they can be
// fetched again by run ID. Transcripts live in memory and in a temporary
// directory that is removed on Close.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/whitelabel/internal/runner"
)

// ErrNotFound is returned by Load for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves run transcripts.
type Store interface {
	Save(rec *RunRecord) error
	Load(runID string) (*RunRecord, error)
}

// Status summarises how a run ended.
type Status string

const (
	Succeeded  Status = "succeeded"
	Failed     Status = "failed"
	Canceled   Status = "canceled"
	Incomplete Status = "incomplete"
)

// RunRecord is the transcript of one run.
type RunRecord struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Events     []runner.Event `json:"events"`
	Canceled   bool           `json:"canceled,omitempty"`
}

// NewRecord starts a transcript for the session with the given ID.
func NewRecord(id string, started time.Time) *RunRecord {
	return &RunRecord{ID: id, StartedAt: started}
}

// Append adds ev to the transcript.
func (r *RunRecord) Append(ev runner.Event) {
	r.Events = append(r.Events, ev)
}

// Terminal returns the event that ended the run, if any.
func (r *RunRecord) Terminal() (runner.Event, bool) {
	if n := len(r.Events); n > 0 && r.Events[n-1].Terminal() {
		return r.Events[n-1], true
	}
	return runner.Event{}, false
}

// Status reports how the run ended.
func (r *RunRecord) Status() Status {
	ev, ok := r.Terminal()
	switch {
	case ok && ev.Success():
		return Succeeded
	case ok:
		return Failed
	case r.Canceled:
		return Canceled
	default:
		return Incomplete
	}
}

// Output returns stdout and stderr text in arrival order, stderr chunks
// prefixed with runner.StderrPrefix.
func (r *RunRecord) Output() string {
	var b strings.Builder
	for _, ev := range r.Events {
		switch ev.Kind {
		case runner.KindStdout:
			b.WriteString(ev.Text)
		case runner.KindStderr:
			b.WriteString(runner.StderrPrefix)
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

// Duration is the wall time between start and finish.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// validID rejects IDs that are not run UUIDs so they can be used as file
// names safely.
func validID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	return nil
}
