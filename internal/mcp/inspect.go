package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/telemetry"
)

type runParams struct {
	EnvContent string            `json:"env_content,omitempty" jsonschema:"env file text to pass to whitelabel.sh"`
	Values     map[string]string `json:"values,omitempty" jsonschema:"form values to render when env_content is empty"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	p := h.current()
	envText := params.EnvContent
	if strings.TrimSpace(envText) == "" && len(params.Values) > 0 {
		st := stateFrom(p.Fields, params.Values)
		if missing := st.MissingRequired(); len(missing) > 0 {
			return errorResult("Missing required: " + strings.Join(missing, ", "))
		}
		envText = st.EnvContent()
	}

	sess, err := p.Runner.Start(ctx, envText)
	telemetry.RecordRunStart(ctx, sessionID(sess), "mcp", err)
	switch {
	case errors.Is(err, runner.ErrInvalidInput):
		return errorResult("env_content or values is required")
	case errors.Is(err, runner.ErrScriptNotFound):
		return errorResult("whitelabel.sh not found")
	case err != nil:
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	rec := report.NewRecord(sess.ID, sess.StartedAt)
	for ev := range sess.Events() {
		rec.Append(ev)
	}
	sess.Wait()
	rec.FinishedAt = time.Now()
	rec.Canceled = sess.Canceled()

	code := -1
	if ev, ok := rec.Terminal(); ok && ev.Kind == runner.KindExit {
		code = ev.Code
	}
	telemetry.RecordRunExit(context.WithoutCancel(ctx), rec.ID, string(rec.Status()), code, rec.Duration())
	if h.store != nil {
		if err := h.store.Save(rec); err != nil {
			h.log.Warn("saving run transcript", "run_id", rec.ID, "error", err)
		}
	}
	return textResult(formatRun(rec, p.Runner.MaxOutput))
}

func sessionID(s *runner.Session) string {
	if s == nil {
		return ""
	}
	return s.ID
}

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a wl_run result or the X-Run-Id header"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if h.store == nil {
		return errorResult("run history is disabled")
	}
	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	return textResult(formatRun(rec, 0))
}

func formatRun(rec *report.RunRecord, maxOutput int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(rec.Status())))
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	if ev, ok := rec.Terminal(); ok {
		switch ev.Kind {
		case runner.KindExit:
			fmt.Fprintf(&b, "Exit code: %d\n", ev.Code)
		case runner.KindError:
			fmt.Fprintf(&b, "Error: %s\n", ev.Message)
		}
	}
	if d := rec.Duration(); d > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", d.Round(time.Millisecond))
	}

	out := rec.Output()
	if out == "" {
		return b.String()
	}
	truncated := false
	if maxOutput > 0 && len(out) > maxOutput {
		out = out[:maxOutput]
		truncated = true
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Output:")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	if truncated {
		fmt.Fprintf(&b, "    ... (truncated, use wl_inspect %s for the full output)\n", rec.ID)
	}
	return b.String()
}
