package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"github.com/spf13/cobra"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
	"github.com/sandboxlabs/sandboxd/internal/httpapi"
	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
	"github.com/sandboxlabs/sandboxd/internal/reaper"
	"github.com/sandboxlabs/sandboxd/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sandbox HTTP API service",
	Long: `Start runs the sandbox service in the foreground: it opens the
metadata store, connects to the Docker daemon, starts the background file
reaper, and serves the HTTP API until interrupted.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	shutdownProfiling, err := initProfiling(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownProfiling() }()

	cli, err := newDockerClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to docker: %w", err)
	}
	defer func() { _ = cli.Close() }()

	store, err := metadatastore.New(metadatastore.Config{Path: cfg.Database.Path})
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}

	var prom *metrics.Recorder
	if cfg.Server.MetricsEnabled {
		prom = metrics.New()
	}

	engine := dockerengine.New(cli, store, dockerengine.Config{
		UploadRoot:              cfg.Upload.Root,
		PythonImage:             cfg.Containers.Images.Python,
		RImage:                  cfg.Containers.Images.R,
		MaxConcurrentContainers: cfg.Containers.MaxConcurrentContainers,
		DefaultMemoryLimitMB:    cfg.Containers.MemoryLimitMB,
		DefaultCPULimitCores:    cfg.Containers.CPULimitCores,
		DefaultNetworkEnabled:   cfg.Containers.NetworkEnabled,
		MaxExecutionTime:        cfg.Containers.MaxExecutionTime,
	}, prom)

	uploads := fileupload.New(store, fileupload.Config{
		Root:              cfg.Upload.Root,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxUploadSizeMB:   cfg.Upload.MaxUploadSizeMB,
	})

	reap := reaper.New(store, cfg.Upload.Root, cfg.Cleanup.RunInterval, cfg.Cleanup.FileMaxAge, prom)
	go reap.Run(ctx)

	if prom != nil && cfg.Server.MetricsAddress != "" {
		go runMetricsListener(ctx, cfg.Server.MetricsAddress, prom)
	}

	server := httpapi.NewServer(httpapi.Config{
		ListenAddress:   cfg.Server.ListenAddress,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AdapterAPIKey:   cfg.API.Key,
	}, engine, uploads, prom)

	return server.Start(ctx)
}

// newDockerClient connects to the Docker daemon, honoring an explicit
// runtime socket override before falling back to the environment-derived
// default (DOCKER_HOST or the platform default socket).
func newDockerClient(cfg *config.Config) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Containers.RuntimeSocket != "" {
		opts = append(opts, client.WithHost(cfg.Containers.RuntimeSocket))
	}
	return client.NewClientWithOpts(opts...)
}

// runMetricsListener serves the Prometheus handler on its own address,
// separate from the primary API listener, until ctx is cancelled.
func runMetricsListener(ctx context.Context, addr string, prom *metrics.Recorder) {
	srv := &http.Server{Addr: addr, Handler: prom.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener starting", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics listener failed", "error", err)
	}
}
