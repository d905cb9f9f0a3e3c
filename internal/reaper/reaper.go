// Package reaper runs the background janitor that unlinks aged-out files
// and their metadata rows, and removes the session directories they leave
// empty.
package reaper

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
	"github.com/sandboxlabs/sandboxd/internal/telemetry"
)

// Store is the subset of the Metadata Store the reaper depends on.
type Store interface {
	Reap(ctx context.Context, maxAge time.Duration) ([]*metadatastore.FileRecord, error)
}

// Reaper periodically deletes files whose metadata row has aged past
// MaxAge, and prunes any session directory left empty as a result.
type Reaper struct {
	store      Store
	uploadRoot string
	interval   time.Duration
	maxAge     time.Duration
	prom       *metrics.Recorder
}

// New builds a Reaper. It does nothing until Run is called. prom may be nil
// to disable Prometheus instrumentation.
func New(store Store, uploadRoot string, interval, maxAge time.Duration, prom *metrics.Recorder) *Reaper {
	return &Reaper{store: store, uploadRoot: uploadRoot, interval: interval, maxAge: maxAge, prom: prom}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	logger.Info("file cleanup service started", "interval", r.interval, "max_age", r.maxAge)
	defer logger.Info("file cleanup service stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one reap pass. Errors are logged, never fatal to the loop.
func (r *Reaper) sweep(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanReapSweep)
	defer span.End()

	reaped, err := r.store.Reap(ctx, r.maxAge)
	if err != nil {
		logger.ErrorCtx(ctx, "error during file cleanup", "error", err)
		telemetry.RecordError(ctx, err)
		r.prom.RecordReapSweep(0, err)
		return
	}

	for _, record := range reaped {
		r.deleteFile(ctx, record)
	}

	if len(reaped) > 0 {
		logger.InfoCtx(ctx, "cleaned up old files", "count", len(reaped))
	}
	r.prom.RecordReapSweep(len(reaped), nil)
}

func (r *Reaper) deleteFile(ctx context.Context, record *metadatastore.FileRecord) {
	fullPath := filepath.Join(r.uploadRoot, record.Filepath)

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		logger.ErrorCtx(ctx, "error deleting file", "path", fullPath, "error", err)
		return
	}
	logger.InfoCtx(ctx, "deleted file", "path", fullPath)

	sessionDir := filepath.Dir(fullPath)
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return
	}
	if len(entries) == 0 {
		if err := os.Remove(sessionDir); err != nil {
			logger.ErrorCtx(ctx, "error removing empty session directory", "path", sessionDir, "error", err)
			return
		}
		logger.InfoCtx(ctx, "removed empty session directory", "path", sessionDir)
	}
}
