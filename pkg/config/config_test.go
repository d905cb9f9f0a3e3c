package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestDefaultConfigLanguageImages(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Containers.Images.Python == "" {
		t.Error("expected a default python image")
	}
	if cfg.Containers.Images.R == "" {
		t.Error("expected a default r image")
	}
}

func TestValidateRejectsZeroMaxConcurrentContainers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Containers.MaxConcurrentContainers = 0

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for zero MaxConcurrentContainers")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERY_LOUD"

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestDefaultConfigProfilingDisabled(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Telemetry.Profiling.Enabled {
		t.Error("expected profiling disabled by default")
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("expected default profile types even when disabled")
	}
}

func TestLoadWithNoConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error loading defaults: %v", err)
	}
	if cfg.Containers.MaxConcurrentContainers != DefaultConfig().Containers.MaxConcurrentContainers {
		t.Error("expected default MaxConcurrentContainers when no config file is present")
	}
}
