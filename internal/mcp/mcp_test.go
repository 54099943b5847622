package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
)

// setup creates a whitelabel MCP server + client over in-memory transports.
// script is written as the project's whitelabel.sh unless empty.
func setup(t *testing.T, script string) (*mcp.ClientSession, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "whitelabel.sh")
	if script != "" {
		if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	disk := report.NewDiskStore(t.TempDir())
	t.Cleanup(func() { _ = disk.Close() })
	store := report.NewLRUStore(5, disk)
	p := Project{
		Runner: &runner.Runner{
			ScriptPath: scriptPath,
			Shell:      "/bin/sh",
			TempRoot:   t.TempDir(),
			Timeout:    30 * time.Second,
			Logger:     logger,
		},
		EnvFile:  filepath.Join(dir, ".env"),
		EnvLabel: "../.env",
	}
	server := NewServer(p, store, WithLogger(logger))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs, dir
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func runIDFrom(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Run: ") {
			return strings.TrimPrefix(line, "Run: ")
		}
	}
	t.Fatalf("no Run: line in output:\n%s", text)
	return ""
}

// --- wl_fields ---

func TestWlFields(t *testing.T) {
	cs, _ := setup(t, "exit 0\n")
	text := resultText(callTool(t, cs, "wl_fields", nil))
	for _, want := range []string{"APP_NAME (required)", "PRIMARY_COLOR [color]", "default 0xFFE9465F"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

// --- wl_render_env ---

func TestWlRenderEnv(t *testing.T) {
	cs, _ := setup(t, "exit 0\n")
	res := callTool(t, cs, "wl_render_env", map[string]any{
		"values": map[string]any{
			"APP_NAME":      "News Flash",
			"PRIMARY_COLOR": "#112233",
			"EXTRA":         "x",
		},
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{
		`APP_NAME="News Flash"`,
		"PRIMARY_COLOR=0xFF112233",
		"Missing required: NEWS_API_KEY, PACKAGE_NAME, FIREBASE_PROJECT",
		"Ignored unknown keys: EXTRA",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

// --- wl_load_env ---

func TestWlLoadEnv(t *testing.T) {
	cs, dir := setup(t, "exit 0\n")

	res := callTool(t, cs, "wl_load_env", nil)
	if !res.IsError || !strings.Contains(resultText(res), "Unable to read ../.env") {
		t.Errorf("missing env file: IsError=%v text=%s", res.IsError, resultText(res))
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("B=2\nA=\"x y\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	text := resultText(callTool(t, cs, "wl_load_env", nil))
	if !strings.Contains(text, "Loaded 2 values") || !strings.Contains(text, "A=\"x y\"\nB=2") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

// --- wl_run / wl_inspect ---

func TestWlRun_Success(t *testing.T) {
	cs, _ := setup(t, "echo building\necho careful >&2\n")
	res := callTool(t, cs, "wl_run", map[string]any{"env_content": "APP_NAME=X"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"Status: SUCCEEDED", "Exit code: 0", "building", "[stderr] careful"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}

	id := runIDFrom(t, text)
	insp := callTool(t, cs, "wl_inspect", map[string]any{"run_id": id})
	if insp.IsError || !strings.Contains(resultText(insp), "building") {
		t.Errorf("wl_inspect: IsError=%v text=%s", insp.IsError, resultText(insp))
	}
}

func TestWlRun_Failure(t *testing.T) {
	cs, _ := setup(t, "exit 7\n")
	text := resultText(callTool(t, cs, "wl_run", map[string]any{"env_content": "A=1"}))
	if !strings.Contains(text, "Status: FAILED") || !strings.Contains(text, "Exit code: 7") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestWlRun_FromValuesRequiresFields(t *testing.T) {
	cs, _ := setup(t, "exit 0\n")
	res := callTool(t, cs, "wl_run", map[string]any{"values": map[string]any{"APP_NAME": "X"}})
	if !res.IsError || !strings.Contains(resultText(res), "Missing required") {
		t.Errorf("IsError=%v text=%s", res.IsError, resultText(res))
	}
}

func TestWlRun_Errors(t *testing.T) {
	cs, _ := setup(t, "")
	res := callTool(t, cs, "wl_run", map[string]any{"env_content": "A=1"})
	if !res.IsError || !strings.Contains(resultText(res), "whitelabel.sh not found") {
		t.Errorf("missing script: IsError=%v text=%s", res.IsError, resultText(res))
	}
	res = callTool(t, cs, "wl_run", map[string]any{"env_content": "  "})
	if !res.IsError {
		t.Error("blank env_content: expected IsError")
	}
}

func TestWlInspect_MissingRunID(t *testing.T) {
	cs, _ := setup(t, "exit 0\n")
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "wl_inspect",
		Arguments: map[string]any{},
	})
	if err == nil {
		t.Error("expected error for missing run_id")
	}
}

func TestWlInspect_UnknownRun(t *testing.T) {
	cs, _ := setup(t, "exit 0\n")
	res := callTool(t, cs, "wl_inspect", map[string]any{"run_id": "6f1c5a3e-6a4b-4f7e-9d1e-1b2c3d4e5f60"})
	if !res.IsError {
		t.Error("expected IsError for unknown run_id")
	}
}

func TestFormatRun_Truncates(t *testing.T) {
	rec := report.NewRecord("6f1c5a3e-6a4b-4f7e-9d1e-1b2c3d4e5f60", time.Now())
	rec.Append(runner.Stdout(strings.Repeat("x", 100)))
	rec.Append(runner.Exit(0))
	text := formatRun(rec, 10)
	if !strings.Contains(text, "truncated") {
		t.Errorf("expected truncation note, got:\n%s", text)
	}
}
