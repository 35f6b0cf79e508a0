package erpimport

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cached tables
type Invalidator interface {
	Invalidate(kind Kind)
}

// Watcher invalidates cached tables when exports in the upload directory change
type Watcher struct {
	dir    string
	target Invalidator
	logger *zap.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(dir string, target Invalidator, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:    dir,
		target: target,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start subscribes to directory events
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.watcher = fw

	w.wg.Add(1)
	go w.run()

	w.logger.Info("Watching ERP upload directory", zap.String("dir", w.dir))
	return nil
}

// Stop ends watching and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.wg.Wait()
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("ERP upload watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	kind, ok := kindFromFile(event.Name)
	if !ok {
		return
	}
	w.target.Invalidate(kind)
	w.logger.Info("ERP export changed",
		zap.String("kind", string(kind)),
		zap.String("file", filepath.Base(event.Name)),
		zap.String("op", event.Op.String()),
	)
}

// kindFromFile maps "sales.xlsx" to KindSales
func kindFromFile(name string) (Kind, bool) {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".xlsx" && ext != ".csv" {
		return "", false
	}
	kind, err := ParseKind(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return "", false
	}
	return kind, true
}
