// Package cli holds the terminal side of whitelabel: printing a run stream,
// talking to a running server and prompting for form values.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/stream"
)

// Printer writes run events to a terminal. Script stdout goes to Out
// untouched; stderr chunks and the final status go to Err.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Color bool

	endsInNewline bool
}

// NewPrinter returns a printer that colors output when stderr is a
// terminal.
func NewPrinter(stdout, stderr io.Writer) *Printer {
	f, _ := stderr.(*os.File)
	return &Printer{Out: stdout, Err: stderr, Color: IsTerminal(f), endsInNewline: true}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.Color {
		return text
	}
	return paint(s, text)
}

// Event prints one run event. Terminal events are not printed; Status
// reports them.
func (p *Printer) Event(ev runner.Event) {
	switch ev.Kind {
	case runner.KindStdout:
		_, _ = io.WriteString(p.Out, ev.Text)
	case runner.KindStderr:
		_, _ = io.WriteString(p.Err, p.style(stderrStyle, ev.Text))
	default:
		return
	}
	if ev.Text != "" {
		p.endsInNewline = strings.HasSuffix(ev.Text, "\n")
	}
}

// Status prints the one-line summary of a finished run.
func (p *Printer) Status(o stream.Outcome) {
	if !p.endsInNewline {
		_, _ = fmt.Fprintln(p.Err)
	}
	s := failedStyle
	if o.Success() {
		s = successStyle
	}
	_, _ = fmt.Fprintln(p.Err, p.style(s, o.Status()))
}

// Env prints rendered env text, keys highlighted.
func (p *Printer) Env(text string) {
	if !p.Color {
		_, _ = io.WriteString(p.Out, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			_, _ = io.WriteString(p.Out, "\n")
		}
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			_, _ = fmt.Fprintln(p.Out, mutedStyle.Render(line))
			continue
		}
		_, _ = fmt.Fprintln(p.Out, keyStyle.Render(key)+"="+value)
	}
}

// Note prints a muted informational line to Err.
func (p *Printer) Note(format string, args ...any) {
	_, _ = fmt.Fprintln(p.Err, p.style(mutedStyle, fmt.Sprintf(format, args...)))
}

// OutcomeOf converts a locally drained run into the Outcome a stream
// client would have seen.
func OutcomeOf(res *runner.Result) stream.Outcome {
	o := stream.Outcome{Log: string(res.Output)}
	switch {
	case res.Error != "":
		ev := runner.Failure(res.Error)
		o.Terminal = &ev
	case res.ExitCode >= 0:
		ev := runner.Exit(res.ExitCode)
		o.Terminal = &ev
	}
	return o
}
