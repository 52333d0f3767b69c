package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound);
// the default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore is durable storage for immutable index archives. Blobs are
// written once and never modified; Put over an existing name replaces it
// wholesale. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create starts a streaming write. The blob becomes visible under
	// name only once the writer is closed without error.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a small blob in one shot, atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the blob names under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle sized at open time.
type Blob interface {
	io.Closer

	// Size returns the blob length in bytes.
	Size() int64

	// ReadAt reads len(p) bytes from off, returning io.EOF on a short
	// read at the end of the blob.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange streams length bytes from off. The range is clamped to
	// the blob end.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a streaming blob writer. Close finalizes the upload;
// nothing is durable before Close returns nil.
type WritableBlob interface {
	io.WriteCloser

	// Sync flushes buffered data where the backend supports it.
	Sync() error
}

// Mappable is an optional Blob capability: zero-copy access to the whole
// blob. The slice is valid until the blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}
