package adapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
)

// NewRouter builds the LibreChat-shaped adapter surface, gated entirely by
// requireAPIKey(apiKey).
func NewRouter(engine *dockerengine.Engine, uploads *fileupload.Collaborator, apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(requireAPIKey(apiKey))

	h := &handlers{engine: engine, uploads: uploads, validate: validator.New()}

	r.Post("/exec", h.execute)
	r.Post("/upload", h.upload)
	r.Get("/download/{session_id}/{file_id}", h.download)
	r.Get("/files/{session_id}", h.listFiles)
	r.Delete("/files/{session_id}/{file_id}", h.deleteFile)

	return r
}
