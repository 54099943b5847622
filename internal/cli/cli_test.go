package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deixis/whitelabel/internal/form"
	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/stream"
)

func TestPrinter_Plain(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)
	if p.Color {
		t.Fatal("Color = true for a buffer")
	}
	p.Event(runner.Stdout("building\n"))
	p.Event(runner.Stderr("warn"))
	p.Event(runner.Exit(0))
	ev := runner.Exit(0)
	p.Status(stream.Outcome{Terminal: &ev})

	if out.String() != "building\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "building\n")
	}
	want := "warn\nwhitelabel.sh ran successfully.\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestPrinter_StatusMessages(t *testing.T) {
	failed := runner.Exit(2)
	spawn := runner.Failure("exec: bash: not found")
	tests := []struct {
		name string
		o    stream.Outcome
		want string
	}{
		{"incomplete", stream.Outcome{}, "whitelabel.sh finished without reporting status.\n"},
		{"nonzero", stream.Outcome{Terminal: &failed}, "whitelabel.sh exited with an error.\n"},
		{"error", stream.Outcome{Terminal: &spawn}, "exec: bash: not found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errOut bytes.Buffer
			p := NewPrinter(&bytes.Buffer{}, &errOut)
			p.Status(tt.o)
			if errOut.String() != tt.want {
				t.Errorf("status = %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestPaint_KeepsNewlines(t *testing.T) {
	got := paint(mutedStyle, "a\n\nb\n")
	if strings.Count(got, "\n") != 3 {
		t.Errorf("paint changed line count: %q", got)
	}
}

func TestPrinter_EnvPlain(t *testing.T) {
	var out bytes.Buffer
	p := &Printer{Out: &out, Err: &bytes.Buffer{}}
	p.Env("A=1\nB=2")
	if out.String() != "A=1\nB=2\n" {
		t.Errorf("Env = %q", out.String())
	}
}

func TestOutcomeOf(t *testing.T) {
	ok := OutcomeOf(&runner.Result{ExitCode: 0, Output: []byte("hi")})
	if !ok.Success() || ok.Log != "hi" {
		t.Errorf("OutcomeOf(exit 0) = %+v", ok)
	}
	failed := OutcomeOf(&runner.Result{ExitCode: -1, Error: "boom"})
	if failed.Terminal == nil || failed.Terminal.Kind != runner.KindError {
		t.Fatalf("OutcomeOf(error) terminal = %+v", failed.Terminal)
	}
	canceled := OutcomeOf(&runner.Result{ExitCode: -1})
	if canceled.Terminal != nil {
		t.Errorf("OutcomeOf(canceled) terminal = %+v, want nil", canceled.Terminal)
	}
}

func TestClient_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/run-whitelabel" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", stream.ContentType)
		fmt.Fprint(w, `{"kind":"stdout","text":"one\n"}`+"\n")
		fmt.Fprint(w, `{"kind":"stderr","text":"two\n"}`+"\n")
		fmt.Fprint(w, `{"kind":"exit","code":0}`+"\n")
	}))
	defer srv.Close()

	var seen []runner.Kind
	c := &Client{BaseURL: srv.URL + "/"}
	o, err := c.Run(context.Background(), "A=1", func(ev runner.Event) { seen = append(seen, ev.Kind) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !o.Success() {
		t.Errorf("Success = false, outcome %+v", o)
	}
	if o.Log != "one\n[stderr] two\n" {
		t.Errorf("Log = %q", o.Log)
	}
	if len(seen) != 3 {
		t.Errorf("callback saw %v, want 3 events", seen)
	}
}

func TestClient_RunErrorReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"success":false,"error":"whitelabel.sh not found"}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.Run(context.Background(), "A=1", nil)
	var rerr *ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *ResponseError", err)
	}
	if rerr.Status != http.StatusInternalServerError || rerr.Message != "whitelabel.sh not found" {
		t.Errorf("ResponseError = %+v", rerr)
	}
	if !IsResponseError(err) {
		t.Error("IsResponseError = false")
	}
}

func TestClient_RunIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", stream.ContentType+"; charset=utf-8")
		fmt.Fprint(w, `{"kind":"stdout","text":"partial"}`+"\n")
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.Run(context.Background(), "A=1", nil)
	if !errors.Is(err, stream.ErrIncompleteRun) {
		t.Errorf("err = %v, want ErrIncompleteRun", err)
	}
}

func TestClient_LoadEnv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"values":{"APP_NAME":"News"}}`)
	}))
	defer srv.Close()

	values, err := (&Client{BaseURL: srv.URL}).LoadEnv(context.Background())
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if values["APP_NAME"] != "News" {
		t.Errorf("APP_NAME = %q, want News", values["APP_NAME"])
	}
}

func TestPrompt_AppliesInputs(t *testing.T) {
	orig := runInputs
	t.Cleanup(func() { runInputs = orig })

	var gotTitle string
	runInputs = func(title string, inputs []Input) error {
		gotTitle = title
		for _, in := range inputs {
			switch in.Field.Key {
			case form.KeyAppName:
				*in.Value = "News Flash"
			case "PRIMARY_COLOR":
				if *in.Value != "#E9465F" {
					t.Errorf("PRIMARY_COLOR prefill = %q, want #E9465F", *in.Value)
				}
				*in.Value = "#00ff00"
			}
		}
		return nil
	}

	s, err := Prompt("Client", form.NewState(form.DefaultFields))
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if gotTitle != "Client" {
		t.Errorf("title = %q", gotTitle)
	}
	if s.Value(form.KeyAppName) != "News Flash" {
		t.Errorf("APP_NAME = %q", s.Value(form.KeyAppName))
	}
	if s.Value("PRIMARY_COLOR") != "0xFF00FF00" {
		t.Errorf("PRIMARY_COLOR = %q, want 0xFF00FF00", s.Value("PRIMARY_COLOR"))
	}
}

func TestPrompt_WrapsError(t *testing.T) {
	orig := runInputs
	t.Cleanup(func() { runInputs = orig })
	runInputs = func(string, []Input) error { return errors.New("tty unavailable") }

	s := form.NewState(form.DefaultFields)
	got, err := Prompt("x", s)
	if err == nil || err.Error() != "prompt form: tty unavailable" {
		t.Fatalf("err = %v", err)
	}
	if got.Value("PRIMARY_COLOR") != s.Value("PRIMARY_COLOR") {
		t.Error("state changed on error")
	}
}

func TestValidate(t *testing.T) {
	name, _ := form.Lookup(form.DefaultFields, form.KeyAppName)
	primary, _ := form.Lookup(form.DefaultFields, "PRIMARY_COLOR")
	if err := validate(name, "  "); err == nil {
		t.Error("blank required field accepted")
	}
	if err := validate(primary, "#12"); err == nil {
		t.Error("partial color accepted")
	}
	if err := validate(primary, ""); err != nil {
		t.Errorf("empty color rejected: %v", err)
	}
	if err := validate(primary, "a1b2c3"); err != nil {
		t.Errorf("complete color rejected: %v", err)
	}
}
