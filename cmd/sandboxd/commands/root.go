// Package commands implements the sandboxd CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// Global flags.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sandboxd",
	Short: "sandboxd runs untrusted code in disposable Docker containers",
	Long: `sandboxd is a network-accessible code execution sandbox. It accepts
source code over HTTP, runs it inside a disposable, network-isolated Docker
container, and reports back stdout/stderr and any files the run produced.

Use "sandboxd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(), once.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/sandboxd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
}

// configFile returns the config file path from the global --config flag.
func configFile() string {
	return cfgFile
}
