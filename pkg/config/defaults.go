package config

import "time"

// DefaultConfig returns a Config populated with sandboxd's out-of-the-box
// defaults, matching the original service's configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
			Profiling: ProfilingConfig{
				Enabled:      false,
				Endpoint:     "http://localhost:4040",
				ProfileTypes: []string{"cpu", "alloc_objects", "inuse_objects"},
			},
		},
		Server: ServerConfig{
			ListenAddress:   ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  true,
			MetricsAddress:  ":9090",
		},
		Database: DatabaseConfig{
			Path: "./data/database.db",
		},
		Containers: ContainersConfig{
			RuntimeSocket: "",
			Images: LanguageImages{
				Python: "python-scientific-notebook",
				R:      "r-notebook",
			},
			MaxConcurrentContainers: 10,
			MemoryLimitMB:           512,
			CPULimitCores:           1.0,
			NetworkEnabled:          false,
			MaxExecutionTime:        30 * time.Second,
		},
		Upload: UploadConfig{
			Root: "./data/uploads",
			AllowedExtensions: []string{
				".csv", ".txt", ".json", ".py", ".r", ".png", ".jpg", ".jpeg",
				".pdf", ".xlsx", ".parquet", ".md",
			},
			MaxUploadSizeMB: 50,
		},
		Cleanup: CleanupConfig{
			RunInterval: 1 * time.Hour,
			FileMaxAge:  24 * time.Hour,
		},
		API: APIConfig{
			Key: "",
		},
	}
}
