// Package snapshot implements the pre/post directory snapshot algorithm the
// Execution Engine uses to detect files a container run created or
// modified on the shared bind-mounted working directory.
package snapshot

import (
	"crypto/md5" //nolint:gosec // content fingerprinting only, never security sensitive
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandboxlabs/sandboxd/internal/logger"
)

// FileState is the in-memory change-detection record for a single file.
// It is never persisted; it only lives for the lifetime of one execution.
type FileState struct {
	Path string
	Size int64
	// MTime is the file's modification time in floating-point seconds
	// since the Unix epoch, matching the precision the original scanner
	// compared on.
	MTime      float64
	ContentMD5 string
}

// Snapshot recursively walks root and returns a map of path (relative to
// root, using forward slashes) to FileState for every regular file found.
//
// Entries whose basename ends in ".lock" are skipped. Symlinks are not
// followed and are treated as absent. Unreadable entries are logged and
// omitted rather than failing the whole snapshot.
func Snapshot(root string) (map[string]FileState, error) {
	states := make(map[string]FileState)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("snapshot: directory does not exist", "path", root)
			return states, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "snapshot", Path: root, Err: fs.ErrInvalid}
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("snapshot: error visiting entry", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		// Symlinks are treated as absent: don't follow, don't record.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Warn("snapshot: error stating entry", "path", path, "error", err)
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("snapshot: error reading entry", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			logger.Warn("snapshot: error computing relative path", "path", path, "error", err)
			return nil
		}
		rel = filepath.ToSlash(rel)

		sum := md5.Sum(content) //nolint:gosec
		states[rel] = FileState{
			Path:       path,
			Size:       fi.Size(),
			MTime:      float64(fi.ModTime().UnixNano()) / 1e9,
			ContentMD5: hex.EncodeToString(sum[:]),
		}

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return states, nil
}

// Diff compares a before/after snapshot pair and returns the set of
// relative paths that are new or modified in after.
//
// A path is changed if it is present in after and either absent from
// before, or its size, content hash, or mtime differs. Deletions (present
// in before, absent from after) are never included — the engine only ever
// reports new or modified files. The content hash is authoritative: two
// files whose size and mtime happen to coincide but whose bytes differ
// are still classified as changed.
func Diff(before, after map[string]FileState) map[string]struct{} {
	changed := make(map[string]struct{})

	for rel, post := range after {
		pre, existed := before[rel]
		if !existed {
			changed[rel] = struct{}{}
			continue
		}
		if pre.Size != post.Size || pre.ContentMD5 != post.ContentMD5 || pre.MTime != post.MTime {
			changed[rel] = struct{}{}
		}
	}

	return changed
}
