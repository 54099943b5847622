package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deixis/whitelabel/internal/cli"
)

// stdinIsTerminal is swapped in tests.
var stdinIsTerminal = func() bool { return cli.IsTerminal(os.Stdin) }

func newInitCmd(o *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Fill in the form interactively and write the env file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmdInit(o, out, stdout, stderr)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default: the project's env file)")
	return cmd
}

func cmdInit(o *rootOptions, out string, stdout, stderr io.Writer) error {
	if !stdinIsTerminal() {
		return errors.New("init needs an interactive terminal; use render --set instead")
	}
	p, err := loadProject(o)
	if err != nil {
		return err
	}
	if out == "" {
		out = p.EnvFilePath()
	}

	s, err := p.formState(true, "", nil)
	if err != nil {
		return err
	}
	s, err = cli.Prompt("Whitelabel configuration", s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, []byte(s.EnvContent()+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}

	pr := cli.NewPrinter(stdout, stderr)
	pr.Note("Wrote %s", out)
	if missing := s.MissingRequired(); len(missing) > 0 {
		pr.Note("Still missing: %v", missing)
	}
	return nil
}
