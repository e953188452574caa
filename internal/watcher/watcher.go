// Package watcher ingests documents dropped into watched directories, with
// fsnotify and per-file debouncing.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/ingest"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches drop folders and ingests matching files as they appear.
// Writes are debounced per file so a document still being copied is only
// ingested once it settles. Content-hash dedup in the pipeline makes repeat
// events harmless.
type Watcher struct {
	pipeline   *ingest.Pipeline
	roots      []string
	extensions []string
	debounce   time.Duration
	logger     *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// New creates a watcher over roots. extensions filters which files are
// ingested (empty = all).
func New(pipeline *ingest.Pipeline, roots, extensions []string, logger *zap.Logger) *Watcher {
	return &Watcher{
		pipeline:   pipeline,
		roots:      roots,
		extensions: extensions,
		debounce:   defaultDebounce,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	for _, root := range w.roots {
		if err := watcher.Add(root); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching directories",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.matchesExtension(ev.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[ev.Name]; ok {
		timer.Stop()
	}
	path := ev.Name
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	result, err := w.pipeline.IngestFile(ctx, path, map[string]interface{}{"source": "watch"})
	if err != nil {
		if err == ingest.ErrNoContent {
			w.logger.Debug("skipping file with no content", zap.String("path", path))
			return
		}
		w.logger.Error("auto-ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	if result.Deduplicated {
		w.logger.Debug("file already ingested", zap.String("path", path))
		return
	}
	w.logger.Info("auto-ingested file",
		zap.String("path", path),
		zap.Int64("document_id", result.DocumentID),
		zap.Int("chunks", result.ChunkCount))
}

func (w *Watcher) matchesExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range w.extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Stop stops watching and cancels pending debounce timers.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, timer := range w.timers {
			timer.Stop()
			delete(w.timers, path)
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
	})
}
