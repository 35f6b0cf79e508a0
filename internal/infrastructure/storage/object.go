// Package storage provides read access to uploaded ERP export files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrObjectNotFound is returned when the requested key does not exist
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectInfo describes a stored file without reading it
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
	ETag    string
}

// Identity changes whenever the object content is replaced
func (o ObjectInfo) Identity() string {
	if o.ETag != "" {
		return o.Key + "@" + o.ETag
	}
	return fmt.Sprintf("%s:%d:%d", o.Key, o.Size, o.ModTime.UnixNano())
}

// ObjectReader is implemented by every file backend
type ObjectReader interface {
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
