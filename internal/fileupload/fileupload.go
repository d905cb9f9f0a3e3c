// Package fileupload implements direct file upload, download, list, and
// delete operations against the upload root and the Metadata Store,
// independent of code execution.
package fileupload

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprinting only
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sandboxlabs/sandboxd/internal/idgen"
	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
)

// ErrExtensionNotAllowed is returned when an upload's extension is not in
// the configured allow-list.
var ErrExtensionNotAllowed = errors.New("fileupload: file extension not allowed")

// ErrFileTooLarge is returned when an upload exceeds the configured byte
// cap.
var ErrFileTooLarge = errors.New("fileupload: file exceeds maximum upload size")

// Store is the subset of the Metadata Store the collaborator depends on.
type Store interface {
	Upsert(ctx context.Context, record *metadatastore.FileRecord) error
	Get(ctx context.Context, sessionID, fileID string) (*metadatastore.FileRecord, error)
	List(ctx context.Context, sessionID string) ([]*metadatastore.FileRecord, error)
	Delete(ctx context.Context, sessionID, fileID string) (bool, error)
}

// Config controls the upload collaborator's policy.
type Config struct {
	Root              string
	AllowedExtensions []string
	MaxUploadSizeMB   int64
}

// Collaborator saves, lists, serves, and deletes files under the upload
// root, independent of any code execution.
type Collaborator struct {
	store Store
	cfg   Config
}

// New builds a Collaborator.
func New(store Store, cfg Config) *Collaborator {
	return &Collaborator{store: store, cfg: cfg}
}

func (c *Collaborator) extensionAllowed(filename string) bool {
	if len(c.cfg.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range c.cfg.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// Save validates and persists content as filename under sessionID's working
// directory, upserting its metadata row.
func (c *Collaborator) Save(ctx context.Context, sessionID, filename string, content []byte) (*metadatastore.FileRecord, error) {
	if !c.extensionAllowed(filename) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filepath.Ext(filename))
	}
	if maxBytes := c.cfg.MaxUploadSizeMB * 1024 * 1024; maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}

	sessionDir := filepath.Join(c.cfg.Root, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("fileupload: creating session directory: %w", err)
	}

	destPath := filepath.Join(sessionDir, filename)
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("fileupload: writing file: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("fileupload: statting written file: %w", err)
	}

	sum := md5.Sum(content) //nolint:gosec
	record := &metadatastore.FileRecord{
		ID:               idgen.New(),
		SessionID:        sessionID,
		Filename:         filename,
		Filepath:         filepath.Join(sessionID, filename),
		Size:             info.Size(),
		ContentType:      mimetype.Detect(content).String(),
		OriginalFilename: filename,
		ETag:             hex.EncodeToString(sum[:]),
	}

	if err := c.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("fileupload: persisting metadata: %w", err)
	}

	logger.InfoCtx(ctx, "saved uploaded file", "session_id", sessionID, "filename", filename, "size", info.Size())
	return record, nil
}

// List returns every record tracked for sessionID.
func (c *Collaborator) List(ctx context.Context, sessionID string) ([]*metadatastore.FileRecord, error) {
	return c.store.List(ctx, sessionID)
}

// Open returns the record and a reader over its on-disk content.
func (c *Collaborator) Open(ctx context.Context, sessionID, fileID string) (*metadatastore.FileRecord, io.ReadCloser, error) {
	record, err := c.store.Get(ctx, sessionID, fileID)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filepath.Join(c.cfg.Root, record.Filepath))
	if err != nil {
		return nil, nil, fmt.Errorf("fileupload: opening file: %w", err)
	}

	return record, file, nil
}

// Delete removes the file's metadata row, its on-disk content, and prunes
// the session directory if it is left empty.
func (c *Collaborator) Delete(ctx context.Context, sessionID, fileID string) (bool, error) {
	record, err := c.store.Get(ctx, sessionID, fileID)
	if errors.Is(err, metadatastore.ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	fullPath := filepath.Join(c.cfg.Root, record.Filepath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("fileupload: removing file: %w", err)
	}

	deleted, err := c.store.Delete(ctx, sessionID, fileID)
	if err != nil {
		return false, err
	}

	sessionDir := filepath.Dir(fullPath)
	if entries, err := os.ReadDir(sessionDir); err == nil && len(entries) == 0 {
		_ = os.Remove(sessionDir)
	}

	return deleted, nil
}
