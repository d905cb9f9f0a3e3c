package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sandboxlabs/sandboxd/internal/logger"
)

// requestLogger logs method/path/status/duration/request id for every
// request. Health checks log at DEBUG to avoid polluting logs; everything
// else logs at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"content_type", r.Header.Get("Content-Type"),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		if r.URL.Path == "/health" {
			logger.DebugCtx(r.Context(), "request completed", logArgs...)
			return
		}
		logger.InfoCtx(r.Context(), "request completed", logArgs...)
	})
}
