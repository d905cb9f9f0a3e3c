package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
	"github.com/sandboxlabs/sandboxd/internal/httpapi/adapter"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
)

// NewRouter builds the chi router serving the execution, upload, and
// observation surface, plus the LibreChat-shaped adapter prefix. The adapter
// prefix is always mounted; when adapterKey is empty its requests get 503.
// prom may be nil; when nil, /metrics reports 404.
//
// Middleware stack, in order:
//   - RequestID: assigns a request id used by logging
//   - RealIP: trusts forwarded headers for client address
//   - requestLogger: structured completion log line
//   - Recoverer: converts panics into 500s instead of crashing the process
//   - Timeout: bounds total request handling time
func NewRouter(engine *dockerengine.Engine, uploads *fileupload.Collaborator, adapterKey string, prom *metrics.Recorder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", Health)
	r.Handle("/metrics", prom.Handler())

	h := NewHandlers(engine, uploads)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/execute", h.Execute)
		r.Post("/upload", h.Upload)
		r.Get("/files/{session_id}", h.ListFiles)
		r.Get("/download/{session_id}/{file_id}", h.DownloadFile)
		r.Delete("/files/{session_id}/{file_id}", h.DeleteFile)
		r.Get("/containers/active", h.ContainersActive)

		r.Mount("/librechat", adapter.NewRouter(engine, uploads, adapterKey))
	})

	return r
}
