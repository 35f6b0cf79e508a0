package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
)

// FileStore keeps the credential in a JSON file readable only by the owner
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed token store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored credential
func (s *FileStore) Load(ctx context.Context) (integration.TokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return integration.TokenData{}, integration.ErrTokenNotFound
	}
	if err != nil {
		return integration.TokenData{}, fmt.Errorf("failed to read token file: %w", err)
	}

	var token integration.TokenData
	if err := json.Unmarshal(data, &token); err != nil {
		return integration.TokenData{}, fmt.Errorf("failed to decode token file: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return integration.TokenData{}, integration.ErrTokenNotFound
	}
	return token, nil
}

// Save replaces the stored credential atomically
func (s *FileStore) Save(ctx context.Context, token integration.TokenData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

var _ integration.TokenStore = (*FileStore)(nil)
