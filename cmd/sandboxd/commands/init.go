package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandboxlabs/sandboxd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sandboxd configuration file populated with default values.

By default, the file is created at $XDG_CONFIG_HOME/sandboxd/config.yaml.
Use --config to pick a different path.

Examples:
  sandboxd init
  sandboxd init --config /etc/sandboxd/config.yaml
  sandboxd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if err := config.WriteDefault(path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set your container images and resource limits")
	fmt.Println("  2. Start the service with: sandboxd start")
	fmt.Printf("  3. Or point at this file explicitly: sandboxd start --config %s\n", path)

	return nil
}
