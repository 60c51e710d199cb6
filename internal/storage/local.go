package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore implements FileStore against the local filesystem
type LocalStore struct{}

// NewLocalStore creates a local filesystem store
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// Open opens a local file for reading
func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Exists checks if a local file exists
func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// Join joins path elements with the OS separator
func (s *LocalStore) Join(elem ...string) string {
	return filepath.Join(elem...)
}
