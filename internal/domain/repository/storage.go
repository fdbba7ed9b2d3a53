package repository

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for content-addressed blob storage.
// Implementations should be provided by the infrastructure layer (e.g., a
// local filesystem rooted at a configured directory).
type ObjectStorage interface {
	// Store writes reader's bytes under filename and returns the storage key
	// (the filename, unchanged). filename must already be validated by the
	// caller: no path separators, no "..", and non-colliding with an existing
	// object. Store fails on an empty reader.
	Store(ctx context.Context, filename string, reader io.Reader) (key string, err error)

	// Load opens the object addressed by key for reading. Returns
	// ErrObjectNotFound when the resolved path is missing or unreadable.
	// Caller is responsible for closing the returned ReadCloser.
	Load(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object addressed by key. Idempotent: deleting a
	// missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object addressed by key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
