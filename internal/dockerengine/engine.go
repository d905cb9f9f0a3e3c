// Package dockerengine implements the code execution core: it creates a
// disposable, network-isolated container per request, runs the caller's
// source through the matching interpreter, and reports back what the run
// produced on stdout/stderr and which files it left behind.
package dockerengine

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content fingerprinting only
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/sandboxlabs/sandboxd/internal/idgen"
	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
	"github.com/sandboxlabs/sandboxd/internal/snapshot"
	"github.com/sandboxlabs/sandboxd/internal/telemetry"
)

const (
	workDir        = "/mnt/data"
	containerUser  = "jovyan"
	startPollEvery = 100 * time.Millisecond
	startDeadline  = 10 * time.Second
)

// languageSpec maps a recognized language to the image it runs in and the
// argv prefix used to invoke the interpreter.
type languageSpec struct {
	image       string
	argvPrefix  []string
	versionArgv []string
	emptyHint   string
}

// ExecuteParams are the inputs to a single code execution.
type ExecuteParams struct {
	Code      string
	SessionID string
	Lang      string

	// Overrides; zero values fall back to engine defaults.
	MemoryLimitMB  int64
	CPULimitCores  float64
	NetworkEnabled *bool
}

// ExecutionResult is the complete outcome of Execute. It is always
// returned — Execute never returns a Go error to its caller.
type ExecutionResult struct {
	Stdout  string
	Stderr  string
	Status  string // "ok" or "error"
	Version string
	Files   []*metadatastore.FileRecord
	Metrics *ExecutionMetrics
}

// ExecutionMetrics is the subset of ContainerMetrics surfaced in a
// response.
type ExecutionMetrics struct {
	MemoryUsage       int64
	CPUUsage          float64
	ExecutionTimeSecs float64
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// Config carries the engine's defaults, sourced from ambient configuration.
type Config struct {
	UploadRoot              string
	PythonImage             string
	RImage                  string
	MaxConcurrentContainers int
	DefaultMemoryLimitMB    int64
	DefaultCPULimitCores    float64
	DefaultNetworkEnabled   bool
	MaxExecutionTime        time.Duration
}

// Engine is the Execution Engine: it owns the Docker client, the image
// readiness coordinator, the admission semaphore, and the live-container
// metrics registry.
type Engine struct {
	cli       *client.Client
	images    *Coordinator
	store     *metadatastore.Store
	admission *semaphore.Weighted
	metrics   *metricsRegistry
	prom      *metrics.Recorder
	cfg       Config
	languages map[string]languageSpec
}

// New builds an Engine backed by cli and store. prom may be nil to disable
// Prometheus instrumentation.
func New(cli *client.Client, store *metadatastore.Store, cfg Config, prom *metrics.Recorder) *Engine {
	return &Engine{
		cli:       cli,
		images:    NewCoordinator(cli, prom),
		store:     store,
		admission: semaphore.NewWeighted(int64(cfg.MaxConcurrentContainers)),
		metrics:   newMetricsRegistry(),
		prom:      prom,
		cfg:       cfg,
		languages: map[string]languageSpec{
			"py": {
				image:       cfg.PythonImage,
				argvPrefix:  []string{"python", "-c"},
				versionArgv: []string{"python", "--version"},
				emptyHint:   "Empty. Make sure to explicitly print() the results in Python",
			},
			"r": {
				image:       cfg.RImage,
				argvPrefix:  []string{"Rscript", "-e"},
				versionArgv: []string{"Rscript", "--version"},
				emptyHint:   "Empty. Make sure to use print() or cat() to display results in R",
			},
		},
	}
}

// EmptyOutputHint returns the language-specific hint the HTTP layer
// substitutes when a successful run produced no stdout.
func (e *Engine) EmptyOutputHint(lang string) string {
	return e.languages[lang].emptyHint
}

// Active returns a snapshot of every container currently tracked by the
// engine, for the containers/active observation endpoint.
func (e *Engine) Active() map[string]ContainerMetrics {
	return e.metrics.Active()
}

// Execute runs code inside a fresh container for lang and reports the
// outcome. It never returns a Go error — every failure mode is folded into
// the returned ExecutionResult per the engine's failure semantics.
func (e *Engine) Execute(ctx context.Context, params ExecuteParams) ExecutionResult {
	spec, ok := e.languages[params.Lang]
	if !ok || spec.image == "" {
		return errorResult(fmt.Sprintf("unsupported language: %s", params.Lang))
	}

	ctx, span := telemetry.StartExecutionSpan(ctx, params.SessionID, params.Lang, spec.image)
	defer span.End()

	// correlationID ties together every lifecycle log line this execution
	// produces, independent of the session and container IDs (which may be
	// reused across retries or absent entirely on early failures).
	correlationID := uuid.NewString()

	if err := e.handshake(ctx); err != nil {
		logger.ErrorCtx(ctx, "container runtime unreachable", "correlation_id", correlationID, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}

	sessionDir := filepath.Join(e.cfg.UploadRoot, params.SessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		logger.ErrorCtx(ctx, "failed to create session directory", "correlation_id", correlationID, "session_id", params.SessionID, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}

	before, err := e.snapshotDir(ctx, sessionDir)
	if err != nil {
		logger.ErrorCtx(ctx, "pre-execution snapshot failed", "correlation_id", correlationID, "session_id", params.SessionID, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}

	if err := e.admission.Acquire(ctx, 1); err != nil {
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}
	defer e.admission.Release(1)

	if err := e.images.Ensure(ctx, spec.image); err != nil {
		logger.ErrorCtx(ctx, "image pull failed", "correlation_id", correlationID, "image", spec.image, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult(fmt.Sprintf("Failed to pull required container image: %s. Error: %v", spec.image, err))
	}

	containerID, err := e.createContainer(ctx, correlationID, spec.image, sessionDir, params)
	if containerID != "" {
		telemetry.SetAttributes(ctx, telemetry.ContainerID(containerID))
		e.prom.ContainerStarted()
		defer e.prom.ContainerFinished()
		defer e.teardown(ctx, correlationID, containerID)
	}
	if err != nil {
		logger.ErrorCtx(ctx, "container creation failed", "correlation_id", correlationID, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}

	start := time.Now()
	result := e.runInContainer(ctx, correlationID, containerID, spec, params, sessionDir, before)
	e.prom.ObserveExecution(params.Lang, result.Status, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.ExitCode(statusCode(result.Status)))
	if result.Status == statusError {
		telemetry.SetStatus(ctx, codes.Error, result.Stderr)
	} else {
		telemetry.SetStatus(ctx, codes.Ok, "")
	}
	return result
}

// statusCode maps the engine's string status to a small numeric code for
// the execution span's exit_code attribute: 0 for ok, 1 for anything else.
func statusCode(status string) int {
	if status == statusOK {
		return 0
	}
	return 1
}

// snapshotDir wraps snapshot.Snapshot in a span so pre- and post-execution
// filesystem scans show up as distinct timed steps in a trace.
func (e *Engine) snapshotDir(ctx context.Context, sessionDir string) (map[string]snapshot.FileState, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSnapshot)
	defer span.End()

	state, err := snapshot.Snapshot(sessionDir)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return state, err
}

func (e *Engine) handshake(ctx context.Context) error {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			// One reinitialisation: drop the client's pooled connections so
			// the second probe dials the runtime afresh.
			_ = e.cli.Close()
		}
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := e.cli.ServerVersion(probeCtx)
		cancel()
		if err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: version probe failed", ErrRuntimeUnreachable)
}

func (e *Engine) createContainer(ctx context.Context, correlationID, image, sessionDir string, params ExecuteParams) (string, error) {
	ctx, span := telemetry.StartContainerSpan(ctx, telemetry.SpanContainerCreate, "", telemetry.Image(image))
	defer span.End()

	memoryMB := e.cfg.DefaultMemoryLimitMB
	if params.MemoryLimitMB > 0 {
		memoryMB = params.MemoryLimitMB
	}
	cpuCores := e.cfg.DefaultCPULimitCores
	if params.CPULimitCores > 0 {
		cpuCores = params.CPULimitCores
	}
	networkEnabled := e.cfg.DefaultNetworkEnabled
	if params.NetworkEnabled != nil {
		networkEnabled = *params.NetworkEnabled
	}

	hostConfig := &dockercontainer.HostConfig{
		Resources: dockercontainer.Resources{
			Memory:   memoryMB * 1024 * 1024,
			NanoCPUs: int64(cpuCores * 1e9),
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: sessionDir,
				Target: workDir,
			},
		},
	}
	if !networkEnabled {
		hostConfig.NetworkMode = "none"
	}

	resp, err := e.cli.ContainerCreate(ctx,
		&dockercontainer.Config{
			Image:           image,
			Cmd:             []string{"sleep", "infinity"},
			WorkingDir:      workDir,
			NetworkDisabled: !networkEnabled,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		err = fmt.Errorf("creating container: %w", err)
		telemetry.RecordError(ctx, err)
		return "", err
	}

	telemetry.SetAttributes(ctx, telemetry.ContainerID(resp.ID))
	logger.InfoCtx(ctx, "container created", "correlation_id", correlationID, "container_id", resp.ID)

	if err := e.cli.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}); err != nil {
		_ = e.cli.ContainerRemove(ctx, resp.ID, dockercontainer.RemoveOptions{Force: true})
		err = fmt.Errorf("starting container: %w", err)
		telemetry.RecordError(ctx, err)
		return "", err
	}

	e.metrics.register(resp.ID)
	go e.sampleOnce(resp.ID)

	if err := e.awaitRunning(ctx, resp.ID); err != nil {
		logger.WarnCtx(ctx, "container did not reach running state", "correlation_id", correlationID, "container_id", resp.ID, "error", err)
		telemetry.RecordError(ctx, err)
		return resp.ID, err
	}

	return resp.ID, nil
}

func (e *Engine) awaitRunning(ctx context.Context, containerID string) error {
	deadline := time.Now().Add(startDeadline)
	ticker := time.NewTicker(startPollEvery)
	defer ticker.Stop()

	for {
		info, err := e.cli.ContainerInspect(ctx, containerID)
		if err == nil && info.State != nil && info.State.Running {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrContainerStartTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sampleOnce is the best-effort, fire-and-forget metrics sampler. It reads
// the runtime's stats endpoint once and records what it finds; any error
// is logged and swallowed.
func (e *Engine) sampleOnce(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := e.cli.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return
	}
	defer stats.Body.Close()

	var decoded struct {
		MemoryStats struct {
			Usage int64 `json:"usage"`
		} `json:"memory_stats"`
		CPUStats struct {
			CPUUsage struct {
				TotalUsage uint64 `json:"total_usage"`
			} `json:"cpu_usage"`
			SystemCPUUsage uint64 `json:"system_cpu_usage"`
		} `json:"cpu_stats"`
		PreCPUStats struct {
			CPUUsage struct {
				TotalUsage uint64 `json:"total_usage"`
			} `json:"cpu_usage"`
			SystemCPUUsage uint64 `json:"system_cpu_usage"`
		} `json:"precpu_stats"`
	}

	if err := json.NewDecoder(stats.Body).Decode(&decoded); err != nil {
		return
	}

	var cpuUsage float64
	cpuDelta := float64(decoded.CPUStats.CPUUsage.TotalUsage) - float64(decoded.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(decoded.CPUStats.SystemCPUUsage) - float64(decoded.PreCPUStats.SystemCPUUsage)
	if systemDelta > 0 {
		cpuUsage = (cpuDelta / systemDelta) * 100.0
	}

	e.metrics.update(containerID, decoded.MemoryStats.Usage, cpuUsage)
}

func (e *Engine) runInContainer(
	ctx context.Context,
	correlationID string,
	containerID string,
	spec languageSpec,
	params ExecuteParams,
	sessionDir string,
	before map[string]snapshot.FileState,
) ExecutionResult {
	ctx, span := telemetry.StartContainerSpan(ctx, telemetry.SpanContainerRun, containerID, telemetry.Language(params.Lang))
	defer span.End()

	if _, err := e.exec(ctx, containerID, []string{"chown", "-R", containerUser + ":users", workDir}, "root"); err != nil {
		logger.WarnCtx(ctx, "permission fix-up failed", "correlation_id", correlationID, "container_id", containerID, "error", err)
	}

	version, _, err := e.exec(ctx, containerID, spec.versionArgv, containerUser)
	if err != nil {
		logger.WarnCtx(ctx, "interpreter version probe failed", "correlation_id", correlationID, "container_id", containerID, "error", err)
	}

	execCtx := ctx
	if e.cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.cfg.MaxExecutionTime)
		defer cancel()
	}

	argv := append(append([]string{}, spec.argvPrefix...), params.Code)
	output, exitCode, err := e.exec(execCtx, containerID, argv, containerUser)
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		logger.WarnCtx(ctx, "execution timed out", "correlation_id", correlationID, "container_id", containerID, "limit", e.cfg.MaxExecutionTime)
		telemetry.SetAttributes(ctx, telemetry.TimedOut(true))
		telemetry.SetStatus(ctx, codes.Error, "execution timed out")
		return ExecutionResult{Stdout: "", Stderr: "execution timed out", Status: statusError, Version: version, Files: []*metadatastore.FileRecord{}}
	}
	if err != nil {
		logger.ErrorCtx(ctx, "interpreter exec failed", "correlation_id", correlationID, "container_id", containerID, "error", err)
		telemetry.RecordError(ctx, err)
		return errorResult("Failed to execute code. Please try again.")
	}

	if exitCode != 0 {
		return ExecutionResult{Stdout: "", Stderr: output, Status: statusError, Version: version, Files: []*metadatastore.FileRecord{}}
	}

	after, err := e.snapshotDir(ctx, sessionDir)
	if err != nil {
		logger.ErrorCtx(ctx, "post-execution snapshot failed", "correlation_id", correlationID, "session_id", params.SessionID, "error", err)
		return errorResult("Failed to execute code. Please try again.")
	}
	changed := snapshot.Diff(before, after)

	files := e.registerChangedFiles(ctx, params.SessionID, sessionDir, changed)

	var metrics *ExecutionMetrics
	if recorded, ok := e.metrics.get(containerID); ok {
		metrics = &ExecutionMetrics{
			MemoryUsage:       recorded.MemoryUsage,
			CPUUsage:          recorded.CPUUsage,
			ExecutionTimeSecs: time.Since(recorded.StartTime).Seconds(),
		}
	}

	return ExecutionResult{Stdout: output, Stderr: "", Status: statusOK, Version: version, Files: files, Metrics: metrics}
}

func (e *Engine) registerChangedFiles(ctx context.Context, sessionID, sessionDir string, changed map[string]struct{}) []*metadatastore.FileRecord {
	files := make([]*metadatastore.FileRecord, 0, len(changed))

	for relPath := range changed {
		fullPath := filepath.Join(sessionDir, filepath.FromSlash(relPath))
		info, err := os.Stat(fullPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		filename := path.Base(relPath)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		record := &metadatastore.FileRecord{
			ID:               idgen.New(),
			SessionID:        sessionID,
			Filename:         filename,
			Filepath:         path.Join(sessionID, relPath),
			Size:             info.Size(),
			ContentType:      contentType,
			OriginalFilename: filename,
			ETag:             md5Hex(strconv.FormatFloat(float64(info.ModTime().UnixNano())/1e9, 'f', -1, 64)),
		}

		if err := e.store.Upsert(ctx, record); err != nil {
			logger.ErrorCtx(ctx, "failed to persist file metadata", "session_id", sessionID, "filename", filename, "error", err)
			continue
		}

		files = append(files, record)
	}

	return files
}

func (e *Engine) teardown(ctx context.Context, correlationID, containerID string) {
	teardownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.cli.ContainerRemove(teardownCtx, containerID, dockercontainer.RemoveOptions{Force: true}); err != nil {
		logger.ErrorCtx(ctx, "failed to remove container", "correlation_id", correlationID, "container_id", containerID, "error", err)
	}
	e.metrics.remove(containerID)
}

// exec runs cmd as user inside containerID, draining and demuxing the
// combined stdout/stderr stream, and returns the decoded output alongside
// the exec's exit code.
func (e *Engine) exec(ctx context.Context, containerID string, cmd []string, user string) (string, int, error) {
	created, err := e.cli.ContainerExecCreate(ctx, containerID, dockercontainer.ExecOptions{
		Cmd:          cmd,
		User:         user,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("creating exec: %w", err)
	}

	attached, err := e.cli.ContainerExecAttach(ctx, created.ID, dockercontainer.ExecAttachOptions{})
	if err != nil {
		return "", 0, fmt.Errorf("attaching exec: %w", err)
	}
	defer attached.Close()

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, attached.Reader); err != nil && err != io.EOF {
		return "", 0, fmt.Errorf("reading exec output: %w", err)
	}

	inspect, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return "", 0, fmt.Errorf("inspecting exec: %w", err)
	}

	return Demux(raw.Bytes()), inspect.ExitCode, nil
}

func errorResult(message string) ExecutionResult {
	return ExecutionResult{Stdout: "", Stderr: message, Status: statusError, Files: []*metadatastore.FileRecord{}}
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
