package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently
// across log statements so aggregation/querying by key stays uniform.
const (
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	KeySessionID   = "session_id"   // Execution/upload session identifier
	KeyFileID      = "file_id"      // Metadata store file record identifier
	KeyFilename    = "filename"     // File basename
	KeySize        = "size"         // File size in bytes
	KeyLanguage    = "language"     // Interpreter language: py, r
	KeyImage       = "image"        // Container image name
	KeyContainerID = "container_id" // Docker container identifier

	KeyOperation  = "operation"  // Sub-operation type for complex operations
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeySource     = "source"     // Data source: metadata_store, image_pull, reaper
	KeyAttempt    = "attempt"    // Retry attempt number
	KeyMaxRetries = "max_retries"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// SessionID returns a slog.Attr for an execution/upload session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// FileID returns a slog.Attr for a metadata store file record identifier.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Filename returns a slog.Attr for a file basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Size returns a slog.Attr for a file size in bytes.
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// Language returns a slog.Attr for the interpreter language.
func Language(lang string) slog.Attr {
	return slog.String(KeyLanguage, lang)
}

// Image returns a slog.Attr for a container image name.
func Image(name string) slog.Attr {
	return slog.String(KeyImage, name)
}

// ContainerID returns a slog.Attr for a Docker container identifier.
func ContainerID(id string) slog.Attr {
	return slog.String(KeyContainerID, id)
}

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. Returns an empty attr for a nil
// error so callers can pass it unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Source returns a slog.Attr for the data source of an operation.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
