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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// =============================================================================
// CONFIGURATION RESOLVER
// =============================================================================

// Resolved is the configuration for one document.
type Resolved struct {
	// Settings are the effective plugin settings.
	Settings Settings

	// ProjectConfig is the project configuration file ruff will read, or
	// "" when there is none.
	ProjectConfig string
}

// DirWatcher is notified of every directory consulted during resolution
// so changes to configuration files there can invalidate the cache.
type DirWatcher interface {
	Watch(dir string)
}

type resolveEntry struct {
	resolved Resolved
	err      error
}

// Resolver turns host settings into per-document configuration.
//
// Description:
//
//	Results are cached per document directory. Update and Invalidate
//	drop the cache. Concurrent resolutions of the same directory share
//	one filesystem walk.
//
// Thread Safety: Safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	root       string
	defaults   Settings
	settings   Settings
	cache      map[string]resolveEntry
	generation uint64

	group   singleflight.Group
	logger  *slog.Logger
	watcher DirWatcher
}

// ResolverOption configures the Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithDefaults sets settings that apply wherever the host leaves a field
// unset.
func WithDefaults(defaults Settings) ResolverOption {
	return func(r *Resolver) {
		r.defaults = defaults.Clone()
	}
}

// WithDirWatcher registers a watcher for consulted directories.
func WithDirWatcher(w DirWatcher) ResolverOption {
	return func(r *Resolver) {
		r.watcher = w
	}
}

// NewResolver creates a resolver for a workspace root.
//
// Inputs:
//
//	root - Workspace root directory; "" searches only the document's directory
//	opts - Optional configuration options
//
// Outputs:
//
//	*Resolver - The resolver, holding the defaults until Update is called
func NewResolver(root string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		root:   root,
		cache:  make(map[string]resolveEntry),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.settings = Sanitize(r.defaults, r.logger)
	return r
}

// Root returns the workspace root.
func (r *Resolver) Root() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// SetRoot changes the workspace root and drops the cache.
func (r *Resolver) SetRoot(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = root
	r.resetLocked()
}

// Settings returns the current host settings with defaults applied.
func (r *Resolver) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings.Clone()
}

// Update replaces the host settings and drops the cache.
//
// Description:
//
//	The new settings are layered over the defaults and sanitized before
//	they are stored.
func (r *Resolver) Update(s Settings) {
	merged := Sanitize(s.WithDefaults(r.defaults), r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = merged
	r.resetLocked()
}

// Invalidate drops every cached resolution.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Resolver) resetLocked() {
	r.cache = make(map[string]resolveEntry)
	r.generation++
}

// Resolve returns the configuration for a document.
//
// Description:
//
//	When a project configuration file exists, only the options ruff
//	cannot read from it survive (see Settings.ProjectScoped). Otherwise
//	the host settings are used as-is, except that a config path which
//	does not exist is dropped and reported.
//
// Inputs:
//
//	documentPath - Absolute path of the document (may be empty)
//
// Outputs:
//
//	Resolved - Always usable, even when err is non-nil
//	error - Wraps ErrConfigNotFound when the configured file is missing
//
// Thread Safety: Safe for concurrent use.
func (r *Resolver) Resolve(documentPath string) (Resolved, error) {
	key := ""
	if documentPath != "" {
		key = filepath.Dir(filepath.Clean(documentPath))
	}

	r.mu.RLock()
	entry, ok := r.cache[key]
	gen := r.generation
	root := r.root
	settings := r.settings
	r.mu.RUnlock()
	if ok {
		return cloneResolved(entry.resolved), entry.err
	}

	v, _, _ := r.group.Do(strconv.FormatUint(gen, 10)+"\x00"+key, func() (any, error) {
		e := r.resolve(root, documentPath, settings)

		r.mu.Lock()
		if r.generation == gen {
			r.cache[key] = e
		}
		r.mu.Unlock()
		return e, nil
	})

	e := v.(resolveEntry)
	return cloneResolved(e.resolved), e.err
}

func (r *Resolver) resolve(root, documentPath string, settings Settings) resolveEntry {
	if r.watcher != nil {
		for _, dir := range searchDirs(root, documentPath) {
			r.watcher.Watch(dir)
		}
	}

	if cfg := findProjectConfig(root, documentPath, r.logger); cfg != "" {
		r.logger.Debug("Found existing configuration for ruff, skipping host settings",
			slog.String("config", cfg),
		)
		return resolveEntry{resolved: Resolved{
			Settings:      settings.ProjectScoped(),
			ProjectConfig: cfg,
		}}
	}

	s := settings.Clone()
	if s.Config == "" || isInlineConfig(s.Config) {
		return resolveEntry{resolved: Resolved{Settings: s}}
	}

	path := s.Config
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	if _, err := os.Stat(path); err != nil {
		missing := s.Config
		s.Config = ""
		return resolveEntry{
			resolved: Resolved{Settings: s},
			err:      fmt.Errorf("%w: %s", ErrConfigNotFound, missing),
		}
	}
	s.Config = path
	return resolveEntry{resolved: Resolved{Settings: s}}
}

// isInlineConfig reports whether a --config value is an inline
// `key = value` override rather than a file path.
func isInlineConfig(v string) bool {
	return strings.Contains(v, "=") && !strings.HasSuffix(strings.TrimSpace(v), ".toml")
}

func cloneResolved(r Resolved) Resolved {
	return Resolved{Settings: r.Settings.Clone(), ProjectConfig: r.ProjectConfig}
}
