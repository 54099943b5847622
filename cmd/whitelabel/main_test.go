package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/deixis/whitelabel/internal/form"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"whitelabel": func() { os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) },
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
	})
}

func TestRunNoArgs(t *testing.T) {
	var stdout bytes.Buffer
	code := run(nil, &stdout, &bytes.Buffer{})
	if code != 0 {
		t.Errorf("run(nil) = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Available Commands") {
		t.Errorf("stdout missing help text: %q", stdout.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"bogus"}, &bytes.Buffer{}, &stderr)
	if code != 1 {
		t.Errorf("run(bogus) = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), `unknown command "bogus"`) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunBadLogLevel(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"--log-level", "loud", "version"}, &bytes.Buffer{}, &stderr)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "invalid --log-level") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestInitRequiresTerminal(t *testing.T) {
	orig := stdinIsTerminal
	t.Cleanup(func() { stdinIsTerminal = orig })
	stdinIsTerminal = func() bool { return false }

	var stderr bytes.Buffer
	code := run([]string{"--dir", t.TempDir(), "init"}, &bytes.Buffer{}, &stderr)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "interactive terminal") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestApplySets(t *testing.T) {
	s := form.NewState(form.DefaultFields)
	got, err := applySets(s, []string{"APP_NAME=News", "PRIMARY_COLOR=#00ff00", "SECONDARY_COLOR=0x80112233"})
	if err != nil {
		t.Fatalf("applySets: %v", err)
	}
	if got.Value("APP_NAME") != "News" {
		t.Errorf("APP_NAME = %q", got.Value("APP_NAME"))
	}
	if got.Value("PRIMARY_COLOR") != "0xFF00FF00" {
		t.Errorf("PRIMARY_COLOR = %q, want 0xFF00FF00", got.Value("PRIMARY_COLOR"))
	}
	if got.Value("SECONDARY_COLOR") != "0x80112233" {
		t.Errorf("SECONDARY_COLOR = %q, want token kept", got.Value("SECONDARY_COLOR"))
	}

	for _, bad := range []string{"novalue", "=x", "NOT_A_FIELD=1"} {
		if _, err := applySets(s, []string{bad}); err == nil {
			t.Errorf("applySets(%q) succeeded, want error", bad)
		}
	}
}
