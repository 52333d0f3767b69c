package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	blobName := "data-001.bin"
	data := []byte("hello world, this is a local archive blob")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, blobName))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	rangeReader, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.NoError(t, rangeReader.Close())
	require.Equal(t, "this", string(rangeContent))

	w2, err := store.Create(ctx, "data-002.bin")
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"data-001.bin", "data-002.bin"}, names)

	require.NoError(t, store.Delete(ctx, blobName))

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"data-002.bin"}, names)

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing blob is a no-op.
	require.NoError(t, store.Delete(ctx, blobName))
}

func TestLocalStore_NestedNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "snapshots/v12/index.bin", []byte("payload")))
	require.NoError(t, store.Put(ctx, "snapshots/v12/manifest.json", []byte("{}")))
	require.NoError(t, store.Put(ctx, "snapshots/v13/index.bin", []byte("payload")))

	names, err := store.List(ctx, "snapshots/v12/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/v12/index.bin", "snapshots/v12/manifest.json"}, names)

	blob, err := store.Open(ctx, "snapshots/v12/index.bin")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(7), blob.Size())
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "../escape.bin", "a/../../escape.bin", "/abs.bin"} {
		_, err := store.Open(ctx, name)
		require.Error(t, err, "name %q", name)

		err = store.Put(ctx, name, []byte("x"))
		require.Error(t, err, "name %q", name)
	}
}

func TestLocalStore_WritesAreAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	w, err := store.Create(ctx, "staged.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("half written"))
	require.NoError(t, err)

	// Not visible before Close, and the in-flight temp file is hidden
	// from List.
	_, err = store.Open(ctx, "staged.bin")
	require.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Empty(t, names)

	require.NoError(t, w.Close())

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"staged.bin"}, names)

	// Double Close reports the handle as closed.
	require.ErrorIs(t, w.Close(), os.ErrClosed)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestLocalBlob_ReadBoundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	r.Close()
	require.True(t, bytes.Equal(data, content))

	// Range past the end is clamped.
	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	require.Equal(t, "89", string(content))

	// Offset past EOF.
	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty.bin", nil))

	blob, err := store.Open(ctx, "empty.bin")
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(0), blob.Size())
}
