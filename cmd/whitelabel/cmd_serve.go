package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/deixis/whitelabel/internal/icon"
	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/server"
	"github.com/deixis/whitelabel/internal/telemetry"
)

const lockFileName = ".whitelabel.lock"

func newServeCmd(o *rootOptions, stdout, _ io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the whitelabel form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmdServe(ctx, o, addr, stdout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then 127.0.0.1:3000)")
	return cmd
}

func cmdServe(ctx context.Context, o *rootOptions, addr string, stdout io.Writer) error {
	p, err := loadProject(o)
	if err != nil {
		return err
	}
	cfg := p.Config
	if addr == "" {
		addr = cfg.Addr()
	}

	lock := flock.New(filepath.Join(p.Root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking project: %w", err)
	}
	if !locked {
		return fmt.Errorf("another whitelabel server is running in %s", p.Root)
	}
	defer func() { _ = lock.Unlock() }()

	tp, err := telemetry.Init(ctx, telemetry.Endpoints{
		MetricsURL: cfg.Telemetry.MetricsURL,
		LogsURL:    cfg.Telemetry.LogsURL,
	}, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			o.logger.Warn("flushing telemetry", "error", err)
		}
	}()
	p.runner.Env = append(p.runner.Env, tp.ScriptEnv()...)

	disk := report.NewDiskStore("")
	defer func() { _ = disk.Close() }()
	runs := report.NewLRUStore(cfg.History(), disk)

	uploader := &icon.Uploader{
		Primary: icon.LocalStore{Dir: p.IconDir()},
		Logger:  o.logger,
	}
	if cfg.IconS3.Enabled() {
		mirror, err := icon.NewS3Store(ctx, icon.S3Options{
			Bucket:   cfg.IconS3.Bucket,
			Key:      cfg.IconS3.Key,
			Endpoint: cfg.IconS3.Endpoint,
			Region:   cfg.IconS3.Region,
		})
		if err != nil {
			return fmt.Errorf("configuring icon mirror: %w", err)
		}
		uploader.Mirrors = append(uploader.Mirrors, mirror)
	}

	srv, err := server.New(server.Options{
		Runner:    p.runner,
		EnvFile:   p.EnvFilePath(),
		EnvLabel:  p.EnvFileDisplay(),
		Icons:     uploader,
		IconLabel: filepath.Join(p.IconDir(), icon.FileName),
		Runs:      runs,
		Intro:     cfg.Intro,
		Logger:    o.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(stdout, "whitelabel listening on http://%s\n", ln.Addr()) //nolint:errcheck // best-effort stdout
	o.logger.Info("serving", "addr", ln.Addr().String(), "root", p.Root, "script", p.runner.ScriptPath)
	return serveHTTP(ctx, httpServer, ln, o.logger)
}
