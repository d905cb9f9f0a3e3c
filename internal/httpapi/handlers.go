// Package httpapi exposes the sandbox service over HTTP: code execution,
// direct file upload/download/list/delete, and a live-container observation
// endpoint, plus a LibreChat-shaped adapter surface under internal/httpapi/adapter.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
	"github.com/sandboxlabs/sandboxd/internal/idgen"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
)

const statusOK = "ok"

// Handlers holds the collaborators every route depends on.
type Handlers struct {
	engine   *dockerengine.Engine
	uploads  *fileupload.Collaborator
	validate *validator.Validate
}

// NewHandlers builds a Handlers backed by engine and uploads.
func NewHandlers(engine *dockerengine.Engine, uploads *fileupload.Collaborator) *Handlers {
	return &Handlers{engine: engine, uploads: uploads, validate: validator.New()}
}

// Execute handles POST /v1/execute.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	sessionID := ""
	if len(req.Files) > 0 {
		sessionID = req.Files[0].SessionID
	}
	if sessionID == "" {
		sessionID = idgen.New()
	}

	result := h.engine.Execute(r.Context(), dockerengine.ExecuteParams{
		Code:      req.Code,
		SessionID: sessionID,
		Lang:      req.Lang,
	})

	if result.Status == statusOK && result.Stdout == "" {
		result.Stdout = h.engine.EmptyOutputHint(req.Lang)
	}

	files := make([]FileRef, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, FileRef{ID: f.ID, Name: f.Filename, Path: f.Filepath})
	}

	WriteJSON(w, http.StatusOK, ExecuteResponse{
		Run:       RunResult{Stdout: result.Stdout, Stderr: result.Stderr, Status: result.Status},
		Language:  req.Lang,
		Version:   result.Version,
		SessionID: sessionID,
		Files:     files,
	})
}

// Upload handles POST /v1/upload. The uploaded file travels as multipart
// form data under field name "file"; "session_id" may be supplied to append
// to an existing session.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		InternalServerError(w, "reading upload: "+err.Error())
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = idgen.New()
	}

	record, err := h.uploads.Save(r.Context(), sessionID, header.Filename, content)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, UploadResponse{
		Message:   "success",
		SessionID: sessionID,
		Files:     []FileObject{toFileObject(sessionID, record)},
	})
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fileupload.ErrExtensionNotAllowed):
		BadRequest(w, err.Error())
	case errors.Is(err, fileupload.ErrFileTooLarge):
		RequestEntityTooLarge(w, err.Error())
	default:
		InternalServerError(w, err.Error())
	}
}

// ListFiles handles GET /v1/files/{session_id}.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	records, err := h.uploads.List(r.Context(), sessionID)
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}

	objects := make([]FileObject, 0, len(records))
	for _, record := range records {
		objects = append(objects, toFileObject(sessionID, record))
	}

	WriteJSON(w, http.StatusOK, objects)
}

// DownloadFile handles GET /v1/download/{session_id}/{file_id}.
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileID := chi.URLParam(r, "file_id")

	record, reader, err := h.uploads.Open(r.Context(), sessionID, fileID)
	if err != nil {
		if errors.Is(err, metadatastore.ErrFileNotFound) {
			NotFound(w, "file "+fileID+" not found")
			return
		}
		InternalServerError(w, err.Error())
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.OriginalFilename+`"`)
	_, _ = io.Copy(w, reader)
}

// DeleteFile handles DELETE /v1/files/{session_id}/{file_id}.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileID := chi.URLParam(r, "file_id")

	deleted, err := h.uploads.Delete(r.Context(), sessionID, fileID)
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	if !deleted {
		NotFound(w, "file "+fileID+" not found")
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Message: "File deleted successfully"})
}

// ContainersActive handles GET /v1/containers/active.
func (h *Handlers) ContainersActive(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Active())
}

// Health handles GET /health. It is a liveness probe only — it reports the
// process is up and serving, with no dependency checks.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toFileObject(sessionID string, record *metadatastore.FileRecord) FileObject {
	return FileObject{
		Name:         record.Filename,
		ID:           record.ID,
		SessionID:    sessionID,
		Size:         record.Size,
		LastModified: record.LastModified.UTC().Format("2006-01-02T15:04:05Z07:00"),
		ETag:         record.ETag,
		ContentType:  record.ContentType,
		Metadata: &FileMetadata{
			ContentType:      record.ContentType,
			OriginalFilename: record.OriginalFilename,
		},
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
