// Package watch reacts to settings-file edits. Only the settings file is
// watched: change notifications for source files are known to fire before
// the new content is readable, so sources are never auto-invalidated. The
// supported contract there is an explicit refresh with a timestamp check at
// trigger time.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"voicepatch/internal/config"
)

// ApplyFunc receives freshly loaded settings after a change settles.
type ApplyFunc func(ctx context.Context, cfg *config.Config) error

// Watcher watches the user root for edits to the settings file, debounces
// rapid saves, reloads the settings, and hands them to the apply callback.
type Watcher struct {
	mu       sync.Mutex
	root     string
	log      *zap.Logger
	apply    ApplyFunc
	watcher  *fsnotify.Watcher
	pending  map[string]time.Time
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the settings file under root.
func NewWatcher(root string, log *zap.Logger, apply ApplyFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		log:      log,
		apply:    apply,
		watcher:  fsw,
		pending:  make(map[string]time.Time),
		debounce: 500 * time.Millisecond, // editors save in bursts
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a watch placed on the file itself.
	if err := w.watcher.Add(w.root); err != nil {
		// The event loop never launched; undo the running mark so Stop does
		// not wait on doneCh, and release the fsnotify handle.
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		if cerr := w.watcher.Close(); cerr != nil {
			w.log.Error("closing watcher", zap.Error(cerr))
		}
		return err
	}
	w.log.Info("watching settings", zap.String("file", config.Path(w.root)))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != config.SettingsFile {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.log.Debug("settings event", zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			delete(w.pending, path)
			settled = true
		}
	}
	w.mu.Unlock()
	if !settled {
		return
	}

	cfg, err := config.Load(w.root)
	if err != nil {
		w.log.Warn("settings reload failed", zap.Error(err))
		return
	}
	w.log.Info("settings changed",
		zap.Bool("enable_personalization", cfg.EnablePersonalization),
		zap.Bool("verbose_personalization", cfg.VerbosePersonalization))
	if err := w.apply(ctx, cfg); err != nil {
		w.log.Warn("applying settings change failed", zap.Error(err))
	}
}
