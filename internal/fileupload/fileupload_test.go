package fileupload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sandboxlabs/sandboxd/internal/metadatastore"
)

func newTestCollaborator(t *testing.T) (*Collaborator, *metadatastore.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := metadatastore.New(metadatastore.Config{Path: filepath.Join(t.TempDir(), "db.sqlite")})
	require.NoError(t, err)

	return New(store, Config{
		Root:              root,
		AllowedExtensions: []string{".csv", ".txt"},
		MaxUploadSizeMB:   1,
	}), store, root
}

func TestSaveWritesFileAndMetadata(t *testing.T) {
	c, _, root := newTestCollaborator(t)
	ctx := context.Background()

	record, err := c.Save(ctx, "sess0000000000000000a", "data.csv", []byte("a,b,c\n1,2,3\n"))
	require.NoError(t, err)
	require.Equal(t, "data.csv", record.Filename)
	require.Equal(t, int64(len("a,b,c\n1,2,3\n")), record.Size)

	written, err := os.ReadFile(filepath.Join(root, "sess0000000000000000a", "data.csv"))
	require.NoError(t, err)
	require.Equal(t, "a,b,c\n1,2,3\n", string(written))
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	c, _, _ := newTestCollaborator(t)
	_, err := c.Save(context.Background(), "sess0000000000000000a", "payload.exe", []byte("x"))
	require.ErrorIs(t, err, ErrExtensionNotAllowed)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	c, _, _ := newTestCollaborator(t)
	big := make([]byte, 2*1024*1024)
	_, err := c.Save(context.Background(), "sess0000000000000000a", "big.csv", big)
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestListReturnsSavedFiles(t *testing.T) {
	c, _, _ := newTestCollaborator(t)
	ctx := context.Background()

	_, err := c.Save(ctx, "sess0000000000000000a", "a.csv", []byte("1"))
	require.NoError(t, err)
	_, err = c.Save(ctx, "sess0000000000000000a", "b.txt", []byte("2"))
	require.NoError(t, err)

	records, err := c.List(ctx, "sess0000000000000000a")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestOpenReturnsContent(t *testing.T) {
	c, _, _ := newTestCollaborator(t)
	ctx := context.Background()

	record, err := c.Save(ctx, "sess0000000000000000a", "a.csv", []byte("hello"))
	require.NoError(t, err)

	_, reader, err := c.Open(ctx, "sess0000000000000000a", record.ID)
	require.NoError(t, err)
	defer reader.Close()

	buf := make([]byte, 5)
	n, err := reader.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestDeleteRemovesFileAndEmptySessionDir(t *testing.T) {
	c, _, root := newTestCollaborator(t)
	ctx := context.Background()

	record, err := c.Save(ctx, "sess0000000000000000a", "a.csv", []byte("hello"))
	require.NoError(t, err)

	deleted, err := c.Delete(ctx, "sess0000000000000000a", record.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = os.Stat(filepath.Join(root, "sess0000000000000000a"))
	require.True(t, os.IsNotExist(err))
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	c, _, _ := newTestCollaborator(t)
	deleted, err := c.Delete(context.Background(), "sess0000000000000000a", "doesnotexist00000000a")
	require.NoError(t, err)
	require.False(t, deleted)
}
