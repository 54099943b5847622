package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	wlmcp "github.com/deixis/whitelabel/internal/mcp"
	"github.com/deixis/whitelabel/internal/report"
)

type mcpOptions struct {
	httpAddr     string
	instructions bool
	roots        bool
}

func newMCPCmd(o *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var mo mcpOptions
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mo.instructions {
				_, err := fmt.Fprint(stdout, wlmcp.Instructions)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmdMCP(ctx, o, mo, stderr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&mo.httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :9090)")
	f.BoolVar(&mo.instructions, "instructions", false, "print model instructions and exit")
	f.BoolVar(&mo.roots, "roots", false, "follow the client's first file root as the project")
	return cmd
}

func cmdMCP(ctx context.Context, o *rootOptions, mo mcpOptions, stderr io.Writer) error {
	p, err := loadProject(o)
	if err != nil {
		return err
	}

	disk := report.NewDiskStore("")
	defer func() { _ = disk.Close() }()
	store := report.NewLRUStore(p.Config.History(), disk)

	opts := []wlmcp.ServerOption{wlmcp.WithLogger(o.logger)}
	if mo.roots {
		opts = append(opts, wlmcp.WithRoots())
	}
	server := wlmcp.NewServer(wlmcp.Project{
		Runner:   p.runner,
		EnvFile:  p.EnvFilePath(),
		EnvLabel: p.EnvFileDisplay(),
	}, store, opts...)

	if mo.httpAddr != "" {
		return serveMCPHTTP(ctx, server, mo.httpAddr, stderr, o.logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveMCPHTTP(ctx context.Context, server *mcpsdk.Server, addr string, stderr io.Writer, logger *slog.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(stderr, "whitelabel mcp listening on %s\n", ln.Addr()) //nolint:errcheck // best-effort stderr
	return serveHTTP(ctx, httpServer, ln, logger)
}
