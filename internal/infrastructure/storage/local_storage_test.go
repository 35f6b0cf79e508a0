package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalObjectStorage_StatAndOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("x;y\n"), 0o600))
	storage := NewLocalObjectStorage(dir)
	ctx := context.Background()

	info, err := storage.Stat(ctx, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Empty(t, info.ETag)

	rc, err := storage.Open(ctx, "sales.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "x;y\n", string(data))
}

func TestLocalObjectStorage_NotFound(t *testing.T) {
	storage := NewLocalObjectStorage(t.TempDir())

	_, err := storage.Stat(context.Background(), "missing.xlsx")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = storage.Open(context.Background(), "missing.xlsx")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalObjectStorage_RejectsEscapingKeys(t *testing.T) {
	storage := NewLocalObjectStorage(t.TempDir())

	for _, key := range []string{"", "../secret", "/etc/passwd"} {
		_, err := storage.Stat(context.Background(), key)
		assert.Error(t, err, key)
		assert.NotErrorIs(t, err, ErrObjectNotFound, key)
	}
}

func TestObjectInfo_Identity(t *testing.T) {
	mod := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	a := ObjectInfo{Key: "sales.xlsx", Size: 10, ModTime: mod}
	b := ObjectInfo{Key: "sales.xlsx", Size: 10, ModTime: mod.Add(time.Second)}
	c := ObjectInfo{Key: "sales.xlsx", ETag: "e1"}

	assert.NotEqual(t, a.Identity(), b.Identity())
	assert.Equal(t, a.Identity(), a.Identity())
	assert.Equal(t, "sales.xlsx@e1", c.Identity())
}
