package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deixis/whitelabel/internal/cli"
	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/stream"
)

type runOptions struct {
	serverURL string
	file      string
	from      string
	sets      []string
}

func newRunCmd(o *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var ro runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run whitelabel.sh with the form values",
		Long: `Run whitelabel.sh and stream its output.

By default the env text is built from the project's env file plus --set
values, and the run is refused while a required field is blank. --file
sends a prepared env file as is. With --server the run happens on a
running "whitelabel serve" instead of locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return cmdRun(ctx, o, ro, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&ro.serverURL, "server", "", "base URL of a whitelabel server, e.g. http://127.0.0.1:3000")
	f.StringVar(&ro.file, "file", "", `env file sent verbatim ("-" reads stdin)`)
	addFormFlags(f, &ro.from, &ro.sets)
	return cmd
}

func cmdRun(ctx context.Context, o *rootOptions, ro runOptions, stdout, stderr io.Writer) error {
	p, err := loadProject(o)
	if err != nil {
		return err
	}
	envText, err := runEnvText(p, ro)
	if err != nil {
		return err
	}

	pr := cli.NewPrinter(stdout, stderr)
	var outcome stream.Outcome
	if ro.serverURL != "" {
		c := &cli.Client{BaseURL: ro.serverURL, Logger: o.logger}
		outcome, err = c.Run(ctx, envText, pr.Event)
		if err != nil && !errors.Is(err, stream.ErrIncompleteRun) {
			return err
		}
	} else {
		res, err := p.runner.Run(ctx, envText, pr.Event)
		if err != nil && !errors.Is(err, runner.ErrCanceled) {
			if errors.Is(err, runner.ErrScriptNotFound) {
				return fmt.Errorf("whitelabel.sh not found at %s", p.runner.ScriptPath)
			}
			return err
		}
		outcome = cli.OutcomeOf(res)
	}

	pr.Status(outcome)
	if !outcome.Success() {
		return errExit
	}
	return nil
}

func runEnvText(p *project, ro runOptions) (string, error) {
	if ro.file != "" {
		if ro.from != "" || len(ro.sets) > 0 {
			return "", fmt.Errorf("--file cannot be combined with --from or --set")
		}
		var data []byte
		var err error
		if ro.file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(ro.file)
		}
		if err != nil {
			return "", fmt.Errorf("reading env file: %w", err)
		}
		return string(data), nil
	}

	s, err := p.formState(true, ro.from, ro.sets)
	if err != nil {
		return "", err
	}
	if missing := s.MissingRequired(); len(missing) > 0 {
		return "", fmt.Errorf("missing required values: %s", strings.Join(missing, ", "))
	}
	return s.EnvContent(), nil
}
