// Package runner executes the whitelabel script against an ephemeral env
// file and reports its progress as a stream of events.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInput is returned when the env content is blank.
	ErrInvalidInput = errors.New("env content is required")
	// ErrScriptNotFound is returned when the script does not exist.
	ErrScriptNotFound = errors.New("script not found")
	// ErrCanceled is returned by Run when the session was cancelled before
	// it produced a terminal event.
	ErrCanceled = errors.New("run canceled")
)

const (
	// EnvFileName is the name of the env file handed to the script.
	EnvFileName = "client.env"
	tempPattern = "whitelabel-form-"
	readChunk   = 32 << 10
	killGrace   = 2 * time.Second
)

// Runner starts script runs. The zero value is not usable: ScriptPath
// must be set.
type Runner struct {
	ScriptPath string        // path to whitelabel.sh
	Shell      string        // interpreter used to run the script; empty runs it directly
	TempRoot   string        // parent of ephemeral directories; empty uses os.TempDir
	Timeout    time.Duration // zero disables the run timeout
	MaxOutput  int           // bytes kept by Run; zero keeps everything
	Env        []string      // KEY=VALUE entries added to the inherited environment
	Logger     *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Start validates envText, writes it to an ephemeral directory and spawns
// the script with the env file as its only argument. Spawn failures are
// reported as an error event on the returned session, not as an error.
//
// Cancelling ctx has the same effect as Session.Cancel.
func (r *Runner) Start(ctx context.Context, envText string) (*Session, error) {
	if strings.TrimSpace(envText) == "" {
		return nil, ErrInvalidInput
	}
	script, err := r.resolveScript()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(r.TempRoot, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	envPath := filepath.Join(dir, EnvFileName)
	if err := os.WriteFile(envPath, []byte(envText), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("writing env file: %w", err)
	}

	argv := []string{script, envPath}
	if r.Shell != "" {
		argv = append([]string{r.Shell}, argv...)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)
	prepareCommand(cmd)

	s := &Session{
		ID:        uuid.New().String(),
		Dir:       dir,
		EnvPath:   envPath,
		StartedAt: time.Now(),
		events:    make(chan Event),
		done:      make(chan struct{}),
		started:   make(chan struct{}),
		exited:    make(chan struct{}),
		finished:  make(chan struct{}),
		cmd:       cmd,
		log:       r.logger(),
	}
	s.log.Info("run starting", "run_id", s.ID, "script", script, "dir", dir)

	go s.run(r.Timeout)
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.finished:
		}
	}()
	return s, nil
}

func (r *Runner) resolveScript() (string, error) {
	if r.ScriptPath == "" {
		return "", ErrScriptNotFound
	}
	script, err := filepath.Abs(r.ScriptPath)
	if err != nil {
		return "", fmt.Errorf("resolving script: %w", err)
	}
	info, err := os.Stat(script)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, script)
	}
	return script, nil
}

// Run starts a session and drains it. fn, when non-nil, sees every event
// in order. The returned Result keeps at most MaxOutput bytes of output.
func (r *Runner) Run(ctx context.Context, envText string, fn func(Event)) (*Result, error) {
	s, err := r.Start(ctx, envText)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	lw := &limitWriter{buf: &out, limit: r.MaxOutput}

	res := &Result{RunID: s.ID, ExitCode: -1}
	terminated := false
	for ev := range s.Events() {
		if fn != nil {
			fn(ev)
		}
		switch ev.Kind {
		case KindStdout:
			_, _ = io.WriteString(lw, ev.Text)
		case KindStderr:
			_, _ = io.WriteString(lw, StderrPrefix+ev.Text)
		case KindError:
			res.Error = ev.Message
			terminated = true
		case KindExit:
			res.ExitCode = ev.Code
			terminated = true
		}
	}
	s.Wait()

	res.Output = out.Bytes()
	res.Truncated = lw.dropped
	if !terminated {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return res, ErrCanceled
	}
	return res, nil
}

// Session is one script run. Its ephemeral directory is removed exactly
// once, after the process has exited or failed to start.
type Session struct {
	ID        string
	Dir       string // ephemeral directory, also the script's working directory
	EnvPath   string
	StartedAt time.Time

	events   chan Event
	done     chan struct{} // closed by Cancel
	started  chan struct{} // closed after the spawn attempt
	exited   chan struct{} // closed once the process has been reaped
	finished chan struct{} // closed after cleanup and after events is closed

	cancelOnce   sync.Once
	finalizeOnce sync.Once
	timedOut     atomic.Bool

	cmd *exec.Cmd
	log *slog.Logger
}

// Events returns the event channel. It is closed after the terminal event,
// or without one if the session is cancelled.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Cancel terminates the process and stops event delivery. Cleanup happens
// once the process has exited; use Wait to block until then.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.done)
		s.log.Info("run canceled", "run_id", s.ID)
		go s.terminate()
	})
}

// Wait blocks until the session has been cleaned up.
func (s *Session) Wait() {
	<-s.finished
}

// Canceled reports whether Cancel was called.
func (s *Session) Canceled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) run(timeout time.Duration) {
	defer close(s.finished)
	defer close(s.events)
	defer s.finalize()

	stdout, stderr, err := s.pipes()
	if err == nil {
		err = s.cmd.Start()
	}
	close(s.started)
	if err != nil {
		close(s.exited)
		s.log.Warn("run failed to start", "run_id", s.ID, "error", err)
		s.send(Failure(err.Error()))
		return
	}

	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			s.timedOut.Store(true)
			s.log.Warn("run timed out", "run_id", s.ID, "timeout", timeout)
			s.terminate()
		})
		defer timer.Stop()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go s.pump(stdout, Stdout, &wg)
	go s.pump(stderr, Stderr, &wg)
	wg.Wait()

	waitErr := s.cmd.Wait()
	close(s.exited)

	switch {
	case s.Canceled():
		s.log.Info("run stopped after cancel", "run_id", s.ID, "duration", time.Since(s.StartedAt))
		return
	case s.timedOut.Load():
		s.send(Failure(fmt.Sprintf("run timed out after %s", timeout)))
	case waitErr == nil:
		s.send(Exit(0))
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			s.send(Failure(waitErr.Error()))
			return
		}
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal: no exit status.
			code = 1
		}
		s.log.Info("run exited", "run_id", s.ID, "code", code, "duration", time.Since(s.StartedAt))
		s.send(Exit(code))
		return
	}
	s.log.Info("run finished", "run_id", s.ID, "duration", time.Since(s.StartedAt))
}

func (s *Session) pipes() (io.ReadCloser, io.ReadCloser, error) {
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return nil, nil, err
	}
	return stdout, stderr, nil
}

// pump forwards r in chunks as they arrive. A multi-byte rune split across
// reads is held back until it is complete.
func (s *Session) pump(r io.Reader, mk func(string) Event, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readChunk)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				s.send(mk(string(pending[:cut])))
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if err != nil {
			break
		}
	}
	if len(pending) > 0 {
		s.send(mk(string(pending)))
	}
}

// completePrefix returns the length of the longest prefix of p that does
// not end inside a multi-byte rune.
func completePrefix(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if utf8.FullRune(p[i:]) {
			return len(p)
		}
		return i
	}
	return len(p)
}

// send delivers ev unless the session was cancelled.
func (s *Session) send(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// terminate asks the process group to stop and escalates after killGrace.
func (s *Session) terminate() {
	<-s.started
	select {
	case <-s.exited:
		return
	default:
	}
	signalTerm(s.cmd)
	select {
	case <-s.exited:
	case <-time.After(killGrace):
		signalKill(s.cmd)
	}
}

func (s *Session) finalize() {
	s.finalizeOnce.Do(func() {
		if err := os.RemoveAll(s.Dir); err != nil {
			s.log.Debug("removing run directory", "run_id", s.ID, "error", err)
		}
	})
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest. A limit of zero keeps everything.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if len(p) > remaining {
		w.dropped = true
		w.buf.Write(p[:max(remaining, 0)])
		return len(p), nil
	}
	return w.buf.Write(p)
}
