package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSnapshotDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	before, err := Snapshot(dir)
	require.NoError(t, err)
	require.Empty(t, before)

	writeFile(t, filepath.Join(dir, "result.csv"), "a,b,c\n")

	after, err := Snapshot(dir)
	require.NoError(t, err)

	diff := Diff(before, after)
	require.Contains(t, diff, "result.csv")
}

func TestSnapshotDetectsModifiedContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "plot.png")
	writeFile(t, target, "original-bytes")

	before, err := Snapshot(dir)
	require.NoError(t, err)

	// Force an mtime change so the modification is observable even on
	// filesystems with coarse mtime resolution.
	newTime := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(target, newTime, newTime))
	writeFile(t, target, "different-bytes-now")
	require.NoError(t, os.Chtimes(target, newTime, newTime))

	after, err := Snapshot(dir)
	require.NoError(t, err)

	diff := Diff(before, after)
	require.Contains(t, diff, "plot.png")
}

func TestSnapshotIgnoresUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "input.py"), "print(1)\n")

	before, err := Snapshot(dir)
	require.NoError(t, err)
	after, err := Snapshot(dir)
	require.NoError(t, err)

	diff := Diff(before, after)
	require.Empty(t, diff)
}

func TestSnapshotExcludesDeletions(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "scratch.tmp")
	writeFile(t, target, "gone soon")

	before, err := Snapshot(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(target))

	after, err := Snapshot(dir)
	require.NoError(t, err)

	diff := Diff(before, after)
	require.Empty(t, diff)
}

func TestSnapshotExcludesLockFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "upload.dat.lock"), "lock-marker")

	states, err := Snapshot(dir)
	require.NoError(t, err)
	require.Empty(t, states)
}

func TestSnapshotExcludesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	writeFile(t, target, "real content")

	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	states, err := Snapshot(dir)
	require.NoError(t, err)
	require.Contains(t, states, "real.txt")
	require.NotContains(t, states, "link.txt")
}

func TestSnapshotPreservesNestedRelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "outputs", "nested", "deep.json"), `{"ok":true}`)

	states, err := Snapshot(dir)
	require.NoError(t, err)
	require.Contains(t, states, filepath.ToSlash(filepath.Join("outputs", "nested", "deep.json")))
}

func TestSnapshotMissingDirectoryReturnsEmpty(t *testing.T) {
	states, err := Snapshot(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, states)
}
