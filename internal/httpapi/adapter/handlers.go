package adapter

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

// handlers holds the collaborators the adapter reshapes responses around.
type handlers struct {
	engine   *dockerengine.Engine
	uploads  *fileupload.Collaborator
	validate *validator.Validate
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// execute handles POST /v1/librechat/exec.
//
// A bad language does not map to an HTTP error here — per the original
// adapter it is folded into a 200 response carrying the rejection message
// as stdout, since LibreChat displays stdout directly to the user.
func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if r.Body == nil || json.NewDecoder(r.Body).Decode(&req) != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Lang != "py" && req.Lang != "r" {
		writeJSON(w, http.StatusOK, executeResponse{
			Stdout: "Language '" + req.Lang + "' is not supported. Please use Python ('py') or R ('r').",
		})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
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

	if result.Status == "ok" && result.Stdout == "" {
		result.Stdout = h.engine.EmptyOutputHint(req.Lang)
	}

	files := make([]fileShortRef, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, fileShortRef{ID: f.ID, Name: f.Filename, Path: f.Filepath})
	}

	writeJSON(w, http.StatusOK, executeResponse{
		SessionID: sessionID,
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
		Files:     files,
	})
}

// upload handles POST /v1/librechat/upload.
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading upload: "+err.Error())
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = idgen.New()
	}

	record, err := h.uploads.Save(r.Context(), sessionID, header.Filename, content)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, fileupload.ErrExtensionNotAllowed):
			status = http.StatusBadRequest
		case errors.Is(err, fileupload.ErrFileTooLarge):
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:   "success",
		SessionID: sessionID,
		Files:     []uploadFileRef{{FileID: record.ID, Filename: record.Filename}},
	})
}

// download handles GET /v1/librechat/download/{session_id}/{file_id}.
func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileID := chi.URLParam(r, "file_id")

	record, reader, err := h.uploads.Open(r.Context(), sessionID, fileID)
	if err != nil {
		if errors.Is(err, metadatastore.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "file "+fileID+" not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.OriginalFilename+`"`)
	_, _ = io.Copy(w, reader)
}

// listFiles handles GET /v1/librechat/files/{session_id}.
func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	records, err := h.uploads.List(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	objects := make([]fileObject, 0, len(records))
	for _, record := range records {
		objects = append(objects, fileObject{
			Name:         sessionID + "/" + record.ID,
			LastModified: record.LastModified.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, objects)
}

// deleteFile handles DELETE /v1/librechat/files/{session_id}/{file_id}.
func (h *handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	fileID := chi.URLParam(r, "file_id")

	deleted, err := h.uploads.Delete(r.Context(), sessionID, fileID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "file "+fileID+" not found")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Message: "File deleted successfully"})
}
