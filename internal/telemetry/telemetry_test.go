package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "sandboxd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, SessionID("sess-1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("SessionID", func(t *testing.T) {
		attr := SessionID("sess-abc")
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, "sess-abc", attr.Value.AsString())
	})

	t.Run("FileID", func(t *testing.T) {
		attr := FileID("file-123")
		assert.Equal(t, AttrFileID, string(attr.Key))
		assert.Equal(t, "file-123", attr.Value.AsString())
	})

	t.Run("Language", func(t *testing.T) {
		attr := Language("py")
		assert.Equal(t, AttrLanguage, string(attr.Key))
		assert.Equal(t, "py", attr.Value.AsString())
	})

	t.Run("Image", func(t *testing.T) {
		attr := Image("sandbox-python:3.11")
		assert.Equal(t, AttrImage, string(attr.Key))
		assert.Equal(t, "sandbox-python:3.11", attr.Value.AsString())
	})

	t.Run("ContainerID", func(t *testing.T) {
		attr := ContainerID("c-deadbeef")
		assert.Equal(t, AttrContainerID, string(attr.Key))
		assert.Equal(t, "c-deadbeef", attr.Value.AsString())
	})

	t.Run("ExitCode", func(t *testing.T) {
		attr := ExitCode(1)
		assert.Equal(t, AttrExitCode, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("TimedOut", func(t *testing.T) {
		attr := TimedOut(true)
		assert.Equal(t, AttrTimedOut, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("NetworkEnabled", func(t *testing.T) {
		attr := NetworkEnabled(false)
		assert.Equal(t, AttrNetworkEnabled, string(attr.Key))
		assert.False(t, attr.Value.AsBool())
	})

	t.Run("MemoryLimitMB", func(t *testing.T) {
		attr := MemoryLimitMB(512)
		assert.Equal(t, AttrMemoryLimitMB, string(attr.Key))
		assert.Equal(t, int64(512), attr.Value.AsInt64())
	})

	t.Run("CPULimitCores", func(t *testing.T) {
		attr := CPULimitCores(1.5)
		assert.Equal(t, AttrCPULimitCores, string(attr.Key))
		assert.Equal(t, 1.5, attr.Value.AsFloat64())
	})

	t.Run("StoreOperation", func(t *testing.T) {
		attr := StoreOperation("insert")
		assert.Equal(t, AttrStoreOperation, string(attr.Key))
		assert.Equal(t, "insert", attr.Value.AsString())
	})
}

func TestStartExecutionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartExecutionSpan(ctx, "sess-1", "py", "sandbox-python:3.11")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartExecutionSpan(ctx, "sess-2", "r", "sandbox-r:4.3", NetworkEnabled(false))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartImageSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartImageSpan(ctx, SpanImageEnsure, "sandbox-python:3.11")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartImageSpan(ctx, SpanImagePull, "sandbox-r:4.3")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartContainerSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartContainerSpan(ctx, SpanContainerCreate, "")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With a known container ID
	newCtx2, span2 := StartContainerSpan(ctx, SpanContainerRun, "c-123", ExitCode(0))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartMetadataSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMetadataSpan(ctx, SpanMetaInsert, FileID("file-1"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
