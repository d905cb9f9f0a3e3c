//go:build integration

package dockerengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainerLifecycleContract exercises the raw create/start/exec/delete
// contract the Execution Engine depends on, against a real daemon, via
// testcontainers-go rather than a bare docker/docker/client — a second,
// independent path to the same daemon, useful for telling an Engine defect
// apart from a daemon or image problem.
func TestContainerLifecycleContract(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:      "python:3.11-slim",
		Cmd:        []string{"sleep", "infinity"},
		WaitingFor: wait.ForExec([]string{"python", "--version"}).WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	state, err := container.State(ctx)
	require.NoError(t, err)
	require.True(t, state.Running)

	exitCode, output, err := container.Exec(ctx, []string{"python", "-c", `print("hello from testcontainers")`})
	require.NoError(t, err)
	require.Equal(t, 0, exitCode)

	buf := make([]byte, 4096)
	n, _ := output.Read(buf)
	require.Contains(t, string(buf[:n]), "hello from testcontainers")

	require.NoError(t, container.Terminate(ctx))
}
