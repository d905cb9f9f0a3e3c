package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("sandboxd %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	},
}
