package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalObjectStorage reads objects from a directory on disk.
// Keys are slash separated paths relative to the root.
type LocalObjectStorage struct {
	root string
}

// Ensure LocalObjectStorage implements ObjectReader
var _ ObjectReader = (*LocalObjectStorage)(nil)

// NewLocalObjectStorage creates a reader rooted at dir
func NewLocalObjectStorage(dir string) *LocalObjectStorage {
	return &LocalObjectStorage{root: dir}
}

// Root returns the directory objects are read from
func (s *LocalObjectStorage) Root() string {
	return s.root
}

// Stat returns size and modification time of the file behind key
func (s *LocalObjectStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	path, err := s.resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	if info.IsDir() {
		return ObjectInfo{}, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, key)
	}

	return ObjectInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open opens the file behind key for reading
func (s *LocalObjectStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// resolve maps a key onto the root, rejecting keys that escape it
func (s *LocalObjectStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes the root", key)
	}
	return filepath.Join(s.root, clean), nil
}
