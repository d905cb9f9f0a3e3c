package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the configuration file path Load searches when
// no explicit path is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// Exists reports whether a configuration file already exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteDefault writes DefaultConfig(), marshalled as YAML, to path. It
// refuses to overwrite an existing file unless force is true.
func WriteDefault(path string, force bool) error {
	if !force && Exists(path) {
		return fmt.Errorf("config: %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshalling defaults: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}
