// Package watch runs the pipeline over capture files as they land in
// a directory, debouncing writes so half-copied files are not parsed.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/techsift/techsift/capture"
	"github.com/techsift/techsift/pipeline"
)

// Config configures the capture watcher
type Config struct {
	// Dir is the directory to watch
	Dir string

	// Patterns are glob patterns a file name must match
	// (empty = all files)
	Patterns []string

	// Debounce is how long to wait for more writes before processing
	Debounce time.Duration

	// FallbackEncoding decodes files that are not valid UTF-8
	FallbackEncoding string

	// Logger for logging events
	Logger *slog.Logger
}

// Event carries the outcome of processing one capture file
type Event struct {
	// Path is the capture file path
	Path string

	// Result is the pipeline result (nil when Error is set)
	Result *pipeline.Result

	// Error if reading or processing failed
	Error error
}

// Watcher watches a directory and runs the pipeline on new or
// modified capture files
type Watcher struct {
	config   Config
	pipeline *pipeline.Pipeline
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect paths before processing
	pendingMu sync.Mutex
	pending   map[string]time.Time // path → last write seen

	events chan Event
}

// NewWatcher creates a watcher backed by the given pipeline
func NewWatcher(config Config, p *pipeline.Pipeline) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce == 0 {
		config.Debounce = 2 * time.Second
	}

	return &Watcher{
		config:   config,
		pipeline: p,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]time.Time),
		events:   make(chan Event, 16),
	}, nil
}

// Events returns the channel of processing outcomes
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the directory
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.config.Dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Capture watcher started",
		"dir", w.config.Dir,
		"patterns", w.config.Patterns,
		"debounce", w.config.Debounce)
	return nil
}

// Stop stops the watcher. The events channel is not closed: the
// processing goroutine may still be emitting until its context is
// cancelled, and consumers stop on that same context.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("Capture change detected",
		"path", event.Name,
		"op", event.Op.String())
}

// matches checks the file name against the configured patterns.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.config.Patterns) == 0 {
		return true
	}
	for _, pat := range w.config.Patterns {
		if ok, err := doublestar.Match(pat, base); err == nil && ok {
			return true
		}
	}
	return false
}

// flushPending processes paths whose last write is older than the
// debounce window
func (w *Watcher) flushPending(ctx context.Context) {
	now := time.Now()

	w.pendingMu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.config.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	c, err := capture.FromFile(path, w.config.FallbackEncoding)
	if err != nil {
		w.logger.Error("Failed to read capture", "path", path, "error", err)
		w.emit(ctx, Event{Path: path, Error: err})
		return
	}

	res, err := w.pipeline.Run(ctx, c)
	if err != nil {
		w.logger.Error("Failed to process capture", "path", path, "error", err)
		w.emit(ctx, Event{Path: path, Result: res, Error: err})
		return
	}

	w.emit(ctx, Event{Path: path, Result: res})
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
