package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/sandboxlabs/sandboxd/internal/dockerengine"
	"github.com/sandboxlabs/sandboxd/internal/fileupload"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
)

func newTestRouter(t *testing.T, apiKey string) http.Handler {
	t.Helper()

	store, err := metadatastore.New(metadatastore.Config{Path: filepath.Join(t.TempDir(), "db.sqlite")})
	require.NoError(t, err)

	uploads := fileupload.New(store, fileupload.Config{Root: t.TempDir(), MaxUploadSizeMB: 10})

	engine := dockerengine.New(nil, store, dockerengine.Config{
		PythonImage:             "python:3.11-slim",
		RImage:                  "r-base:latest",
		MaxConcurrentContainers: 1,
	}, nil)

	return NewRouter(engine, uploads, apiKey)
}

func TestMissingAPIKeyRejected(t *testing.T) {
	router := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/exec", bytes.NewBufferString(`{"code":"x","lang":"py"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmptyConfiguredKeyDisablesSurface(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/files/sess0000000000000000a", nil)
	req.Header.Set("X-Api-Key", "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExecuteBadLanguageFoldedIntoStdout(t *testing.T) {
	router := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/exec", bytes.NewBufferString(`{"code":"x","lang":"cobol"}`))
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp executeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.Stdout, "not supported")
}

func TestUploadThenListFilesShapesName(t *testing.T) {
	store, err := metadatastore.New(metadatastore.Config{Path: filepath.Join(t.TempDir(), "db.sqlite")})
	require.NoError(t, err)
	uploads := fileupload.New(store, fileupload.Config{Root: t.TempDir(), MaxUploadSizeMB: 10})
	engine := dockerengine.New(nil, store, dockerengine.Config{
		PythonImage: "python:3.11-slim", RImage: "r-base:latest", MaxConcurrentContainers: 1,
	}, nil)
	h := &handlers{engine: engine, uploads: uploads, validate: validator.New()}

	record, err := uploads.Save(context.Background(), "sess0000000000000000a", "a.csv", []byte("1,2"))
	require.NoError(t, err)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("session_id", "sess0000000000000000a")
	req := httptest.NewRequest(http.MethodGet, "/files/sess0000000000000000a", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	h.listFiles(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var objects []fileObject
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&objects))
	require.Len(t, objects, 1)
	require.Equal(t, "sess0000000000000000a/"+record.ID, objects[0].Name)
}
