package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/deixis/whitelabel"
)

// Build metadata, injected via ldflags.
var (
	version = whitelabel.Version
	commit  = "unknown"
	date    = "unknown"
)

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print whitelabel version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "whitelabel %s (commit: %s, built: %s)\n", version, commit, date) //nolint:errcheck // best-effort stdout
		},
	}
}
