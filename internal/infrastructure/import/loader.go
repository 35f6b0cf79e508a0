package erpimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/charmap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/storage"
)

// defaultMaxExportSize bounds how much of an export is read into memory
const defaultMaxExportSize = 64 * 1024 * 1024 // 64MB

// extensions are tried in order when locating the export of a kind
var extensions = []string{".xlsx", ".csv"}

// Loader reads exports from object storage and keeps parsed tables in
// memory until the underlying file changes.
type Loader struct {
	store     storage.ObjectReader
	headerRow int
	maxSize   int64
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	tables map[Kind]*Table
	flight singleflight.Group
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithHeaderRow sets the 1-based header row
func WithHeaderRow(row int) LoaderOption {
	return func(l *Loader) {
		if row > 0 {
			l.headerRow = row
		}
	}
}

// WithMaxExportSize caps the bytes read from one export. Larger exports
// fail with ErrFileTooLarge instead of being truncated.
func WithMaxExportSize(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxSize = n
		}
	}
}

// WithLogger sets the loader logger
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader creates a loader over the given storage
func NewLoader(store storage.ObjectReader, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:     store,
		headerRow: 1,
		maxSize:   defaultMaxExportSize,
		logger:    zap.NewNop(),
		now:       time.Now,
		tables:    make(map[Kind]*Table),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the rows of a kind, parsing the export only when it changed
// since the last call or forceReload is set.
func (l *Loader) Load(ctx context.Context, kind Kind, forceReload bool) ([]Row, error) {
	table, err := l.LoadTable(ctx, kind, forceReload)
	if err != nil {
		return nil, err
	}
	return table.Rows, nil
}

// LoadTable is Load returning the whole parsed table
func (l *Loader) LoadTable(ctx context.Context, kind Kind, forceReload bool) (*Table, error) {
	if _, err := RulesFor(kind); err != nil {
		return nil, err
	}

	info, err := l.locate(ctx, kind)
	if err != nil {
		return nil, err
	}

	if !forceReload {
		l.mu.RLock()
		cached, ok := l.tables[kind]
		l.mu.RUnlock()
		if ok && cached.Identity == info.Identity() {
			return cached, nil
		}
	}

	v, err, _ := l.flight.Do(string(kind)+"|"+info.Identity(), func() (any, error) {
		return l.parse(ctx, kind, info)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// locate finds the export of a kind, preferring xlsx over csv
func (l *Loader) locate(ctx context.Context, kind Kind) (storage.ObjectInfo, error) {
	for _, ext := range extensions {
		info, err := l.store.Stat(ctx, string(kind)+ext)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, fmt.Errorf("erp: stat %s export: %w", kind, err)
		}
	}
	return storage.ObjectInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, kind)
}

func (l *Loader) parse(ctx context.Context, kind Kind, info storage.ObjectInfo) (*Table, error) {
	started := l.now()

	if info.Size > l.maxSize {
		return nil, l.tooLarge(kind, info)
	}

	body, err := l.store.Open(ctx, info.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, kind)
		}
		return nil, fmt.Errorf("erp: open %s export: %w", kind, err)
	}
	defer func() { _ = body.Close() }()

	reader := &cappedReader{r: body, left: l.maxSize}

	var grid [][]string
	switch strings.ToLower(path.Ext(info.Key)) {
	case ".xlsx":
		grid, err = ParseXLSX(reader)
	case ".csv":
		// 1C writes csv in Windows-1251 unless told otherwise
		grid, err = ParseCSV(reader, WithFallbackEncoding(charmap.Windows1251))
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, info.Key)
	}
	if reader.over {
		return nil, l.tooLarge(kind, info)
	}
	if err != nil {
		return nil, err
	}

	table, err := BuildTable(kind, grid, l.headerRow)
	if err != nil {
		l.logger.Warn("ERP export rejected",
			zap.String("kind", string(kind)),
			zap.String("source", info.Key),
			zap.Error(err),
		)
		return nil, err
	}
	table.Source = info.Key
	table.Identity = info.Identity()
	table.LoadedAt = l.now()

	l.mu.Lock()
	l.tables[kind] = table
	l.mu.Unlock()

	l.logger.Info("ERP export loaded",
		zap.String("kind", string(kind)),
		zap.String("source", info.Key),
		zap.Int("rows", len(table.Rows)),
		zap.Int("skipped", table.Skipped),
		zap.Int("issues", table.IssueCount),
		zap.Duration("elapsed", l.now().Sub(started)),
	)
	return table, nil
}

func (l *Loader) tooLarge(kind Kind, info storage.ObjectInfo) error {
	l.logger.Warn("ERP export rejected",
		zap.String("kind", string(kind)),
		zap.String("source", info.Key),
		zap.Int64("size", info.Size),
		zap.Int64("max_size", l.maxSize),
	)
	return fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, info.Key, l.maxSize)
}

// cappedReader yields at most left bytes and then fails with
// ErrFileTooLarge if the source has more.
type cappedReader struct {
	r    io.Reader
	left int64
	over bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.over {
		return 0, ErrFileTooLarge
	}
	if c.left <= 0 {
		var one [1]byte
		if _, err := io.ReadAtLeast(c.r, one[:], 1); err != nil {
			return 0, err
		}
		c.over = true
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	return n, err
}

// Invalidate drops the cached table of a kind
func (l *Loader) Invalidate(kind Kind) {
	l.mu.Lock()
	delete(l.tables, kind)
	l.mu.Unlock()
}

// InvalidateAll drops every cached table
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	l.tables = make(map[Kind]*Table)
	l.mu.Unlock()
}

// Cached returns the cached table of a kind without touching storage
func (l *Loader) Cached(kind Kind) (*Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[kind]
	return t, ok
}
