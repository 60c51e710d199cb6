package storage

import (
	"context"
	"io"
)

// FileStore defines the interface for reading dataset files from a backend
type FileStore interface {
	// Open opens the file at path for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks if a file exists at path
	Exists(ctx context.Context, path string) (bool, error)

	// Join joins path elements using the backend's separator rules
	Join(elem ...string) string
}

// ReadAll opens path on the store and reads it fully.
// Parameters:
//   - ctx: context for cancellation.
//   - fs: backing file store.
//   - path: file path or URL to read.
// Returns:
//   - []byte: file contents.
//   - error: non-nil if the file cannot be opened or read.
func ReadAll(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	rc, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
