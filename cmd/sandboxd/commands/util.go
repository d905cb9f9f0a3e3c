package commands

import (
	"context"
	"fmt"

	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/telemetry"
	"github.com/sandboxlabs/sandboxd/pkg/config"
)

// initLogger configures the structured logger from cfg.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initTelemetry starts OpenTelemetry tracing from cfg, returning a shutdown
// function that must be deferred. When tracing is disabled the returned
// shutdown is a no-op.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	telCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "sandboxd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}

	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return shutdown, nil
}

// initProfiling starts continuous Pyroscope profiling from cfg, returning a
// shutdown function that must be deferred. When profiling is disabled the
// returned shutdown is a no-op.
func initProfiling(cfg *config.Config) (func() error, error) {
	profCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "sandboxd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}

	shutdown, err := telemetry.InitProfiling(profCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	return shutdown, nil
}
