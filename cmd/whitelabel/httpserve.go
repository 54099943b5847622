package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// serveHTTP serves hs on ln until ctx is done. Request contexts derive from
// ctx, so in-flight runs are cancelled on shutdown, and serveHTTP returns
// only after their handlers have finished.
func serveHTTP(ctx context.Context, hs *http.Server, ln net.Listener, logger *slog.Logger) error {
	hs.BaseContext = func(net.Listener) context.Context { return ctx }

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", "error", err)
			_ = hs.Close()
		}
	}()

	if err := hs.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	<-drained
	return nil
}
