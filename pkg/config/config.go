// Package config loads and validates sandboxd's runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is sandboxd's complete runtime configuration.
//
// Configuration sources, as Load applies them:
//  1. Default values
//  2. Configuration file (YAML), over the defaults
//  3. Environment variables (SANDBOXD_*), only for keys the file sets
//
// When no file is found, Load returns the defaults and environment
// variables are not read. No CLI flag is bound to a config key; --config
// only chooses the file.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Containers ContainersConfig `mapstructure:"containers" yaml:"containers"`
	Upload     UploadConfig     `mapstructure:"upload" yaml:"upload"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup" yaml:"cleanup"`
	API        APIConfig        `mapstructure:"api" yaml:"api"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls continuous Pyroscope profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	ListenAddress   string        `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsAddress  string        `mapstructure:"metrics_address" yaml:"metrics_address"`
}

// DatabaseConfig configures the embedded metadata store.
type DatabaseConfig struct {
	// Path is the sqlite database file location.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// LanguageImages maps a recognized interpreter language to its container
// image.
type LanguageImages struct {
	Python string `mapstructure:"python" validate:"required" yaml:"python"`
	R      string `mapstructure:"r" validate:"required" yaml:"r"`
}

// ContainersConfig controls the Execution Engine and its collaborators.
type ContainersConfig struct {
	// RuntimeSocket is the Docker daemon socket/host the client connects
	// to. Empty means use the client library's environment-derived
	// default (DOCKER_HOST or the platform default socket).
	RuntimeSocket string `mapstructure:"runtime_socket" yaml:"runtime_socket"`

	Images LanguageImages `mapstructure:"images" yaml:"images"`

	MaxConcurrentContainers int           `mapstructure:"max_concurrent_containers" validate:"required,gt=0" yaml:"max_concurrent_containers"`
	MemoryLimitMB           int64         `mapstructure:"memory_limit_mb" validate:"required,gt=0" yaml:"memory_limit_mb"`
	CPULimitCores           float64       `mapstructure:"cpu_limit_cores" validate:"required,gt=0" yaml:"cpu_limit_cores"`
	NetworkEnabled          bool          `mapstructure:"network_enabled" yaml:"network_enabled"`
	MaxExecutionTime        time.Duration `mapstructure:"max_execution_time" validate:"required,gt=0" yaml:"max_execution_time"`
}

// UploadConfig controls the upload collaborator and session working
// directories.
type UploadConfig struct {
	Root              string   `mapstructure:"root" validate:"required" yaml:"root"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
	MaxUploadSizeMB   int64    `mapstructure:"max_upload_size_mb" validate:"required,gt=0" yaml:"max_upload_size_mb"`
}

// CleanupConfig controls the background reaper.
type CleanupConfig struct {
	RunInterval time.Duration `mapstructure:"run_interval" validate:"required,gt=0" yaml:"run_interval"`
	FileMaxAge  time.Duration `mapstructure:"file_max_age" validate:"required,gt=0" yaml:"file_max_age"`
}

// APIConfig controls the LibreChat-shaped adapter surface.
type APIConfig struct {
	// Key gates the /v1/librechat adapter prefix via the X-Api-Key header or
	// a Bearer token signed with it. Empty disables the adapter surface.
	Key string `mapstructure:"key" yaml:"key"`
}

// Load reads configuration from configPath (or the default search path if
// empty), applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if !found {
		if verr := Validate(cfg); verr != nil {
			return nil, fmt.Errorf("config: validating defaults: %w", verr)
		}
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SANDBOXD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(".")
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: reading config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "sandboxd")
}
