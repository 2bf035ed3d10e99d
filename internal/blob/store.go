// Package blob owns the decision of where file bytes live and the external
// object store they spill into when they are too large for the relational row.
package blob

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_object_store.go -package=mocks docshelf/internal/blob ObjectStore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore is the external blob backend. References returned by Put are
// opaque to callers and round-trip through Get and Delete.
type ObjectStore interface {
	// Put stores data under key and returns the reference to record.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get returns the bytes previously stored under ref.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Delete removes the object behind ref. Deleting an object that is
	// already gone is not an error.
	Delete(ctx context.Context, ref string) error
}

// FSStore implements ObjectStore backed by the local file system.
type FSStore struct {
	root string // absolute path to the blob directory
}

// NewFSStore creates an FSStore rooted at the given directory.
// The directory must already exist.
func NewFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob: root is not a directory: %s", abs)
	}
	return &FSStore{root: abs}, nil
}

// safePath resolves a key against the store root and rejects any result
// that escapes it (directory traversal).
func (s *FSStore) safePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob: empty key")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blob: absolute keys not allowed: %s", key)
	}
	abs := filepath.Join(s.root, cleaned)
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob: key escapes store root: %s", key)
	}
	return abs, nil
}

// Put stores data under key, creating parent directories as needed.
// The write is atomic: data lands in a temp file that is renamed into place.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	abs, err := s.safePath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("blob: create parent dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".put-*")
	if err != nil {
		return "", fmt.Errorf("blob: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("blob: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("blob: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("blob: rename into place: %w", err)
	}

	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}

// Get returns the bytes previously stored under ref.
func (s *FSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	abs, err := s.safePath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the object behind ref.
func (s *FSStore) Delete(ctx context.Context, ref string) error {
	abs, err := s.safePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: delete %s: %w", ref, err)
	}
	return nil
}
