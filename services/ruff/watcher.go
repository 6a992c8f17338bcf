// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ruff

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher watches directories for changes to project configuration
// files and calls a handler after a quiet period.
//
// # Description
//
// Only pyproject.toml, ruff.toml and .ruff.toml events are considered.
// A burst of events (editors often write via rename) results in a single
// handler call once the debounce window passes without new events.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watched map[string]bool

	done     chan struct{}
	stopOnce sync.Once
}

// ConfigWatcherOptions configures the ConfigWatcher.
type ConfigWatcherOptions struct {
	// DebounceWindow is how long to wait for more events before calling
	// the handler.
	// Default: 200ms
	DebounceWindow time.Duration

	// Logger receives watch errors.
	// Default: slog.Default()
	Logger *slog.Logger
}

// NewConfigWatcher creates a watcher that calls onChange after config
// files change.
//
// # Inputs
//
//   - onChange: Called after a debounced burst of relevant events.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *ConfigWatcher: Ready to use (call Start to begin delivering events).
//   - error: Non-nil if the underlying watcher could not be created.
func NewConfigWatcher(onChange func(), opts *ConfigWatcherOptions) (*ConfigWatcher, error) {
	o := ConfigWatcherOptions{DebounceWindow: 200 * time.Millisecond, Logger: slog.Default()}
	if opts != nil {
		if opts.DebounceWindow > 0 {
			o.DebounceWindow = opts.DebounceWindow
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ConfigWatcher{
		watcher:  w,
		onChange: onChange,
		debounce: o.DebounceWindow,
		logger:   o.Logger,
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

// Watch adds a directory. Adding the same directory twice is a no-op.
func (w *ConfigWatcher) Watch(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Debug("Cannot watch directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return
	}
	w.watched[dir] = true
}

// Start begins processing events until ctx is canceled or Stop is called.
func (w *ConfigWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop stops the watcher and releases its resources.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isProjectConfigName(filepath.Base(event.Name)) {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("Project configuration changed",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", slog.String("error", err.Error()))
		}
	}
}
