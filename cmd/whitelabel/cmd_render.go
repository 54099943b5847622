package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deixis/whitelabel/internal/cli"
	"github.com/deixis/whitelabel/internal/server"
)

type renderOptions struct {
	load   bool
	from   string
	sets   []string
	strict bool
	json   bool
}

func newRenderCmd(o *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var ro renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the env file the form would produce",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmdRender(o, ro, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&ro.load, "load", false, "start from the project's env file")
	addFormFlags(f, &ro.from, &ro.sets)
	f.BoolVar(&ro.strict, "strict", false, "fail when a required field is blank")
	f.BoolVar(&ro.json, "json", false, "print the full preview as JSON")
	return cmd
}

func cmdRender(o *rootOptions, ro renderOptions, stdout, stderr io.Writer) error {
	p, err := loadProject(o)
	if err != nil {
		return err
	}
	s, err := p.formState(ro.load, ro.from, ro.sets)
	if err != nil {
		return err
	}

	if ro.json {
		preview := server.Preview(s.Fields(), server.PreviewRequest{Values: s.Values()})
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(preview); err != nil {
			return err
		}
	} else {
		pr := cli.NewPrinter(stdout, stderr)
		pr.Env(s.EnvContent())
		if link, ok := s.WhatsAppLink(); ok {
			pr.Note("Share with %s: %s", link.DisplayNumber, link.URL)
		}
	}

	if missing := s.MissingRequired(); ro.strict && len(missing) > 0 {
		return fmt.Errorf("missing required values: %s", strings.Join(missing, ", "))
	}
	return nil
}
