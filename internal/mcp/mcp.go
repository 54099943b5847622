// Package mcp provides the whitelabel MCP server, registering the form,
// env and run tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/whitelabel"
	"github.com/deixis/whitelabel/internal/config"
	"github.com/deixis/whitelabel/internal/form"
	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
)

//go:embed instructions.md
var Instructions string

// Project is what the tools operate on.
type Project struct {
	Runner   *runner.Runner
	EnvFile  string // absolute path of the .env read by wl_load_env
	EnvLabel string
	Fields   []form.FieldSpec
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu      sync.Mutex
	project Project
	store   report.Store
	log     *slog.Logger
}

func (h *handler) current() Project {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.project
}

// NewServer creates an MCP server with all whitelabel tools registered.
func NewServer(p Project, store report.Store, opts ...ServerOption) *mcp.Server {
	if p.Fields == nil {
		p.Fields = form.DefaultFields
	}
	if p.EnvLabel == "" {
		p.EnvLabel = p.EnvFile
	}
	so := serverOptions{logger: slog.Default()}
	for _, o := range opts {
		o(&so)
	}
	h := &handler{project: p, store: store, log: so.logger}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	if so.followRoots {
		mcpOpts.InitializedHandler = func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateProjectFromRoots(ctx, req.Session)
		}
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "whitelabel", Version: whitelabel.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "wl_fields",
		Description: "List the env keys collected for a white-label build, with labels, defaults and required flags.",
	}, h.fieldsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "wl_render_env",
		Description: `Render form values into .env text in catalogue order.

Unknown keys are ignored. Color fields accept a 0xAARRGGBB token or #RRGGBB (alpha is
kept from the default). The result lists required keys that are still blank.`,
	}, h.renderHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "wl_load_env",
		Description: "Read the project's .env file and return the parsed key/value pairs.",
	}, h.loadEnvHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "wl_run",
		Description: `Run whitelabel.sh with the given env text and wait for it to finish.

Returns the run ID, the outcome and the combined output (stderr lines prefixed with
"[stderr] "). The transcript is kept for wl_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "wl_inspect",
		Description: "Show the transcript of a finished wl_run or web run by run ID.",
	}, h.inspectHandler)

	return s
}

// ServerOption configures the whitelabel MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger      *slog.Logger
	followRoots bool
}

// WithLogger sets the logger used by tool handlers.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithRoots makes the server reload its project from the client's first
// file root once the session is initialized.
func WithRoots() ServerOption {
	return func(o *serverOptions) {
		o.followRoots = true
	}
}

// updateProjectFromRoots queries the client for MCP roots and reloads the
// config from the first file root, pointing the runner and env file at it.
func (h *handler) updateProjectFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}
	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	loaded, err := config.Load(u.Path)
	if err != nil {
		h.log.Warn("ignoring client root", "root", u.Path, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	r := *h.project.Runner
	r.ScriptPath = loaded.ScriptPath()
	r.Shell = loaded.Config.ShellName()
	r.Timeout = loaded.Config.Timeout()
	h.project.Runner = &r
	h.project.EnvFile = loaded.EnvFilePath()
	h.project.EnvLabel = loaded.EnvFileDisplay()
	h.log.Info("project root from client", "root", loaded.Root)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
