// whitelabel builds client .env files and runs whitelabel.sh against them,
// from a browser form, the terminal or an MCP client.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is returned by RunE functions that already reported the failure.
var errExit = errors.New("exit")

// rootOptions holds the persistent flags.
type rootOptions struct {
	dir      string
	envFile  string
	logLevel string

	logger *slog.Logger
}

// run executes the CLI with args and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "whitelabel: %v\n", err) //nolint:errcheck // best-effort stderr
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "whitelabel",
		Short:         "Build client .env files and run whitelabel.sh",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return o.setup(stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown command %q", args[0])
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.dir, "dir", "", "project directory (default: walk up from cwd to "+".whitelabel.yaml)")
	pf.StringVar(&o.envFile, "env-file", "", "load extra environment variables from this file")
	pf.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newServeCmd(o, stdout, stderr),
		newRunCmd(o, stdout, stderr),
		newRenderCmd(o, stdout, stderr),
		newInitCmd(o, stdout, stderr),
		newMCPCmd(o, stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

// setup configures logging and loads --env-file into the process
// environment. Variables already set are left alone.
func (o *rootOptions) setup(stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("loading --env-file: %w", err)
		}
		o.logger.Debug("loaded env file", "path", o.envFile)
	}
	return nil
}
