package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists uploaded files under opaque keys. The production
// deployment uses local disk; the interface keeps an object-store backend
// pluggable without touching handlers.
type BlobStore interface {
	Save(key string, data []byte) (string, error)
	Read(path string) ([]byte, error)
	Exists(path string) bool
}

// LocalStore writes blobs beneath a base directory. Keys are relative
// paths like "{userId}/{submissionId}/{filename}" or "{userId}.{ext}".
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// resolve rejects keys that would escape the base directory.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func (s *LocalStore) Save(key string, data []byte) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}

func (s *LocalStore) Read(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Exists(path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}
