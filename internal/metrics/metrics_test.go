package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilRecorderMethodsDoNotPanic(t *testing.T) {
	var r *Recorder

	require.NotPanics(t, func() {
		r.ContainerStarted()
		r.ContainerFinished()
		r.ObserveExecution("py", "ok", time.Second)
		r.RecordImagePull("python:3.11-slim", nil)
		r.RecordReapSweep(3, errors.New("boom"))
	})
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	r := New()
	r.ContainerStarted()
	r.ObserveExecution("py", "ok", 250*time.Millisecond)
	r.RecordImagePull("python:3.11-slim", nil)
	r.RecordReapSweep(2, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "sandboxd_containers_active")
	require.Contains(t, body, "sandboxd_execution_duration_seconds")
	require.Contains(t, body, "sandboxd_image_pulls_total")
	require.Contains(t, body, "sandboxd_reaped_files_total")
}
