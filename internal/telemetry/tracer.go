package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for sandbox operations, following OpenTelemetry semantic
// convention style (dot-separated, namespaced by subsystem).
const (
	AttrSessionID   = "sandbox.session_id"
	AttrFileID      = "sandbox.file_id"
	AttrLanguage    = "sandbox.language"
	AttrImage       = "sandbox.image"
	AttrContainerID = "sandbox.container_id"
	AttrExitCode    = "sandbox.exit_code"
	AttrTimedOut    = "sandbox.timed_out"

	AttrNetworkEnabled = "container.network_enabled"
	AttrMemoryLimitMB  = "container.memory_limit_mb"
	AttrCPULimitCores  = "container.cpu_limit_cores"

	AttrStoreOperation = "metadata_store.operation"
)

// Span names for sandbox operations.
const (
	SpanExecute         = "execution.run"
	SpanImageEnsure     = "image.ensure"
	SpanImagePull       = "image.pull"
	SpanContainerCreate = "container.create"
	SpanContainerRun    = "container.run"
	SpanSnapshot        = "snapshot.collect"
	SpanMetaLookup      = "metadata_store.lookup"
	SpanMetaInsert      = "metadata_store.insert"
	SpanMetaDelete      = "metadata_store.delete"
	SpanReapSweep       = "reaper.sweep"
)

// SessionID returns an attribute for the execution or upload session ID.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// FileID returns an attribute for a metadata store file record ID.
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// Language returns an attribute for the interpreter language (py, r).
func Language(lang string) attribute.KeyValue {
	return attribute.String(AttrLanguage, lang)
}

// Image returns an attribute for the container image used by an execution.
func Image(name string) attribute.KeyValue {
	return attribute.String(AttrImage, name)
}

// ContainerID returns an attribute for the Docker container ID.
func ContainerID(id string) attribute.KeyValue {
	return attribute.String(AttrContainerID, id)
}

// ExitCode returns an attribute for a container's exit code.
func ExitCode(code int) attribute.KeyValue {
	return attribute.Int(AttrExitCode, code)
}

// TimedOut returns an attribute for whether an execution hit its deadline.
func TimedOut(timedOut bool) attribute.KeyValue {
	return attribute.Bool(AttrTimedOut, timedOut)
}

// NetworkEnabled returns an attribute for whether a container has network access.
func NetworkEnabled(enabled bool) attribute.KeyValue {
	return attribute.Bool(AttrNetworkEnabled, enabled)
}

// MemoryLimitMB returns an attribute for a container's memory limit.
func MemoryLimitMB(mb int64) attribute.KeyValue {
	return attribute.Int64(AttrMemoryLimitMB, mb)
}

// CPULimitCores returns an attribute for a container's CPU limit.
func CPULimitCores(cores float64) attribute.KeyValue {
	return attribute.Float64(AttrCPULimitCores, cores)
}

// StoreOperation returns an attribute for a metadata store operation name.
func StoreOperation(op string) attribute.KeyValue {
	return attribute.String(AttrStoreOperation, op)
}

// StartExecutionSpan starts a span covering one end-to-end code execution:
// image resolution, container run, and snapshot collection.
func StartExecutionSpan(ctx context.Context, sessionID, language, image string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SessionID(sessionID),
		Language(language),
		Image(image),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanExecute, trace.WithAttributes(allAttrs...))
}

// StartImageSpan starts a span for an image coordinator operation (ensure
// or pull).
func StartImageSpan(ctx context.Context, spanName, image string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Image(image),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartContainerSpan starts a span for a container lifecycle operation
// (create or run).
func StartContainerSpan(ctx context.Context, spanName, containerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{}
	if containerID != "" {
		allAttrs = append(allAttrs, ContainerID(containerID))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartMetadataSpan starts a span for a metadata store operation.
func StartMetadataSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}
