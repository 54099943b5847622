package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestServeShutdownCancelsRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("script uses sh")
	}
	dir := t.TempDir()
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	files := map[string]string{
		".whitelabel.yaml": "script: whitelabel.sh\nshell: sh\n",
		"whitelabel.sh":    "echo started\nsleep 30\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	o := &rootOptions{dir: dir, logger: slog.New(slog.DiscardHandler)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- cmdServe(ctx, o, "127.0.0.1:0", pw)
		_ = pw.Close()
	}()

	banner, err := bufio.NewReader(pr).ReadString('\n')
	if err != nil {
		t.Fatalf("reading banner: %v", err)
	}
	base := strings.TrimSpace(strings.TrimPrefix(banner, "whitelabel listening on "))

	res, err := http.Post(base+"/api/run-whitelabel", "application/json", strings.NewReader(`{"envContent":"APP_NAME=Demo"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	first, err := bufio.NewReader(res.Body).ReadString('\n')
	if err != nil || !strings.Contains(first, "started") {
		t.Fatalf("first event = %q, %v", first, err)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("cmdServe: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}

	left, err := filepath.Glob(filepath.Join(tmp, "whitelabel-form-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("run directories left after shutdown: %v", left)
	}
}
