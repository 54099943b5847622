package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/stream"
	"github.com/deixis/whitelabel/internal/telemetry"
)

// RunRequest is the body of POST /api/run-whitelabel.
type RunRequest struct {
	EnvContent string `json:"envContent" jsonschema:"required,description=Env file text handed to whitelabel.sh."`
}

const (
	msgEnvRequired    = "Env content is required"
	msgScriptNotFound = "whitelabel.sh not found"
)

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil || strings.TrimSpace(req.EnvContent) == "" {
		writeError(w, http.StatusBadRequest, msgEnvRequired)
		return
	}

	sess, err := s.opts.Runner.Start(r.Context(), req.EnvContent)
	telemetry.RecordRunStart(r.Context(), sessionID(sess), "http", err)
	switch {
	case errors.Is(err, runner.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, msgEnvRequired)
		return
	case errors.Is(err, runner.ErrScriptNotFound):
		s.log.Error("run refused", "error", err)
		writeError(w, http.StatusInternalServerError, msgScriptNotFound)
		return
	case err != nil:
		s.log.Error("run failed to start", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Run-Id", sess.ID)
	w.WriteHeader(http.StatusOK)

	enc := stream.NewEncoder(w)
	rec := report.NewRecord(sess.ID, sess.StartedAt)
	for ev := range sess.Events() {
		rec.Append(ev)
		if err := enc.Encode(ev); err != nil {
			s.log.Info("client went away", "run_id", sess.ID, "error", err)
			sess.Cancel()
		}
	}
	sess.Wait()
	rec.FinishedAt = time.Now()
	rec.Canceled = sess.Canceled()
	s.finishRun(r, rec)
}

func (s *Server) finishRun(r *http.Request, rec *report.RunRecord) {
	code := -1
	if ev, ok := rec.Terminal(); ok && ev.Kind == runner.KindExit {
		code = ev.Code
	}
	// The request context may already be done; telemetry should still see it.
	ctx := withoutCancel(r)
	telemetry.RecordRunExit(ctx, rec.ID, string(rec.Status()), code, rec.Duration())
	if s.opts.Runs == nil {
		return
	}
	if err := s.opts.Runs.Save(rec); err != nil {
		s.log.Warn("saving run transcript", "run_id", rec.ID, "error", err)
	}
}

func sessionID(s *runner.Session) string {
	if s == nil {
		return ""
	}
	return s.ID
}
