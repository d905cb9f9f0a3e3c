//go:build integration

package dockerengine_test

import (
	"context"
	"testing"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/require"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
)

// These tests exercise the Execution Engine end to end against a real
// Docker daemon (DOCKER_HOST or the platform default socket). They are
// excluded from the default test run via the integration build tag.

func newTestEngine(t *testing.T) *dockerengine.Engine {
	t.Helper()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	store, err := metadatastore.New(metadatastore.Config{Path: t.TempDir() + "/database.db"})
	require.NoError(t, err)

	return dockerengine.New(cli, store, dockerengine.Config{
		UploadRoot:              t.TempDir(),
		PythonImage:             "python:3.11-slim",
		RImage:                  "r-base:latest",
		MaxConcurrentContainers: 2,
		DefaultMemoryLimitMB:    256,
		DefaultCPULimitCores:    1.0,
		DefaultNetworkEnabled:   false,
	}, nil)
}

func TestEngineExecutePythonSuccess(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.Execute(context.Background(), dockerengine.ExecuteParams{
		Code:      `print("hello from sandbox")`,
		SessionID: "integrationsession00001",
		Lang:      "py",
	})

	require.Equal(t, "ok", result.Status)
	require.Contains(t, result.Stdout, "hello from sandbox")
	require.Empty(t, result.Stderr)
}

func TestEngineExecutePythonNonZeroExit(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.Execute(context.Background(), dockerengine.ExecuteParams{
		Code:      `import sys; sys.exit(1)`,
		SessionID: "integrationsession00002",
		Lang:      "py",
	})

	require.Equal(t, "error", result.Status)
}

func TestEngineExecuteDetectsCreatedFile(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.Execute(context.Background(), dockerengine.ExecuteParams{
		Code:      `open("/mnt/data/out.txt", "w").write("done")`,
		SessionID: "integrationsession00003",
		Lang:      "py",
	})

	require.Equal(t, "ok", result.Status)
	require.Len(t, result.Files, 1)
	require.Equal(t, "out.txt", result.Files[0].Filename)
}

func TestEngineRejectsUnsupportedLanguage(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.Execute(context.Background(), dockerengine.ExecuteParams{
		Code:      `1+1`,
		SessionID: "integrationsession00004",
		Lang:      "cobol",
	})

	require.Equal(t, "error", result.Status)
}
