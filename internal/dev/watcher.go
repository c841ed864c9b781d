package dev

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/patch"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/tree"
)

// DefaultDebounce is the quiet period before a change is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// WatcherConfig configures a StateWatcher.
type WatcherConfig struct {
	// Path is the state file.
	Path string

	// Debounce is the delay before reloading after the last event.
	Debounce time.Duration

	// Logger receives reload results. Default: the store's logger.
	Logger *slog.Logger

	// OnReload is called after every reload attempt.
	OnReload func(ReloadResult)
}

// ReloadResult describes one reload.
type ReloadResult struct {
	// Changed is false when the file matches the store.
	Changed bool

	// Version is the store version after the reload.
	Version uint64

	// Patch is the merge patch that was published.
	Patch []byte

	// Err is set when the file could not be read or applied.
	Err error
}

// StateWatcher publishes the contents of a state file to a store.
type StateWatcher struct {
	config WatcherConfig
	store  *store.Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewStateWatcher creates a watcher for s.
func NewStateWatcher(s *store.Store, config WatcherConfig) *StateWatcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = s.Logger()
	}
	return &StateWatcher{
		config: config,
		store:  s,
		logger: logger.With("component", "watch", "file", config.Path),
	}
}

// Reload reads the file once and publishes the difference.
func (w *StateWatcher) Reload(ctx context.Context) ReloadResult {
	res := w.reload(ctx)
	if res.Err != nil {
		w.logger.Warn("reload failed", "error", res.Err)
	} else if res.Changed {
		w.logger.Info("state reloaded", "version", res.Version, "patch_bytes", len(res.Patch))
	} else {
		w.logger.Debug("state unchanged")
	}
	if w.config.OnReload != nil {
		w.config.OnReload(res)
	}
	return res
}

func (w *StateWatcher) reload(ctx context.Context) ReloadResult {
	data, err := os.ReadFile(w.config.Path)
	if err != nil {
		return ReloadResult{Err: errors.New("E161").Wrap(err).WithDetail(err.Error())}
	}
	next, err := tree.FromYAML(data)
	if err != nil {
		return ReloadResult{Err: errors.New("E161").Wrap(err).
			WithDetailf("%s: %s", w.config.Path, err).
			WithLocationFromError(w.config.Path, err)}
	}

	cur := w.store.Current()
	diff, err := patch.Diff(cur.Root, next)
	if err != nil {
		return ReloadResult{Err: err}
	}
	if bytes.Equal(bytes.TrimSpace(diff), []byte("{}")) {
		return ReloadResult{Version: cur.Version}
	}
	m, err := patch.MergeMutation(diff)
	if err != nil {
		return ReloadResult{Err: err}
	}
	if err := w.store.UpdateContext(ctx, m); err != nil {
		return ReloadResult{Err: fmt.Errorf("publish %s: %w", w.config.Path, err)}
	}
	return ReloadResult{Changed: true, Version: w.store.Current().Version, Patch: diff}
}

// Run watches the file until ctx is done. The file's directory is watched
// so that editors replacing the file by rename are seen.
func (w *StateWatcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("E161").Wrap(err).WithDetail(err.Error())
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.config.Path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return errors.New("E161").Wrap(err).WithDetailf("watch %s: %s", filepath.Dir(abs), err)
	}
	w.logger.Info("watching state file")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			w.Reload(ctx)
		}
	}
}

// IsRunning reports whether Run is active.
func (w *StateWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
