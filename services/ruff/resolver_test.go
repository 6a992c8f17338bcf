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
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type recordingWatcher struct {
	mu   sync.Mutex
	dirs map[string]bool
}

func (w *recordingWatcher) Watch(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs == nil {
		w.dirs = make(map[string]bool)
	}
	w.dirs[dir] = true
}

func (w *recordingWatcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func TestSearchDirs(t *testing.T) {
	root := filepath.FromSlash("/repo")
	doc := filepath.FromSlash("/repo/pkg/sub/a.py")

	assert.Equal(t, []string{
		filepath.FromSlash("/repo/pkg/sub"),
		filepath.FromSlash("/repo/pkg"),
		filepath.FromSlash("/repo"),
	}, searchDirs(root, doc))

	assert.Nil(t, searchDirs(root, filepath.FromSlash("/elsewhere/a.py")))
	assert.Nil(t, searchDirs(root, ""))

	assert.Equal(t, []string{filepath.FromSlash("/repo/pkg/sub")}, searchDirs("", doc),
		"without a root only the document's directory is searched")
}

func TestFindProjectConfig(t *testing.T) {
	logger := slog.Default()

	t.Run("pyproject with tool.ruff", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.ruff]\nline-length = 100\n")
		doc := filepath.Join(root, "pkg", "a.py")
		assert.Equal(t, filepath.Join(root, "pyproject.toml"), findProjectConfig(root, doc, logger))
	})

	t.Run("pyproject without tool.ruff", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.black]\nline-length = 100\n")
		assert.Equal(t, "", findProjectConfig(root, filepath.Join(root, "a.py"), logger))
	})

	t.Run("nested ruff table counts", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.ruff.lint]\nselect = [\"E\"]\n")
		assert.Equal(t, filepath.Join(root, "pyproject.toml"), findProjectConfig(root, filepath.Join(root, "a.py"), logger))
	})

	t.Run("invalid toml is ignored", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.ruff\n")
		assert.Equal(t, "", findProjectConfig(root, filepath.Join(root, "a.py"), logger))
	})

	t.Run("ruff.toml and .ruff.toml", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".ruff.toml"), "line-length = 100\n")
		writeFile(t, filepath.Join(root, "pkg", "ruff.toml"), "line-length = 90\n")

		assert.Equal(t, filepath.Join(root, "pkg", "ruff.toml"),
			findProjectConfig(root, filepath.Join(root, "pkg", "a.py"), logger))
		assert.Equal(t, filepath.Join(root, ".ruff.toml"),
			findProjectConfig(root, filepath.Join(root, "other", "a.py"), logger))
	})

	t.Run("config above root is not used", func(t *testing.T) {
		parent := t.TempDir()
		writeFile(t, filepath.Join(parent, "ruff.toml"), "line-length = 100\n")
		root := filepath.Join(parent, "ws")
		require.NoError(t, os.MkdirAll(root, 0o755))
		assert.Equal(t, "", findProjectConfig(root, filepath.Join(root, "a.py"), logger))
	})

	t.Run("no root searches only the document directory", func(t *testing.T) {
		home := t.TempDir()
		writeFile(t, filepath.Join(home, "pyproject.toml"), "[tool.ruff]\nline-length = 100\n")
		doc := filepath.Join(home, "scratch", "a.py")
		assert.Equal(t, "", findProjectConfig("", doc, logger))

		writeFile(t, filepath.Join(home, "scratch", "ruff.toml"), "line-length = 90\n")
		assert.Equal(t, filepath.Join(home, "scratch", "ruff.toml"), findProjectConfig("", doc, logger))
	})
}

func TestResolver_HostSettingsWithoutProjectConfig(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)
	r.Update(Settings{Select: []string{"E"}, LineLength: intPtr(100)})

	res, err := r.Resolve(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Empty(t, res.ProjectConfig)
	assert.Equal(t, []string{"E"}, res.Settings.Select)
	assert.Equal(t, 100, *res.Settings.LineLength)
}

func TestResolver_ProjectConfigDropsHostOptions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ruff.toml"), "line-length = 120\n")

	r := NewResolver(root)
	r.Update(Settings{
		Select:       []string{"E"},
		Ignore:       []string{"E501"},
		LineLength:   intPtr(100),
		ExtendSelect: []string{"I"},
		ExtendIgnore: []string{"D"},
		UnsafeFixes:  true,
	})

	res, err := r.Resolve(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ruff.toml"), res.ProjectConfig)
	assert.Nil(t, res.Settings.Select)
	assert.Nil(t, res.Settings.Ignore)
	assert.Nil(t, res.Settings.LineLength)
	assert.Equal(t, []string{"I"}, res.Settings.ExtendSelect)
	assert.Equal(t, []string{"D"}, res.Settings.ExtendIgnore)
	assert.True(t, res.Settings.UnsafeFixes)
}

func TestResolver_ConfigPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "conf", "custom.toml"), "line-length = 120\n")
	r := NewResolver(root)
	doc := filepath.Join(root, "a.py")

	t.Run("relative path joined to root", func(t *testing.T) {
		r.Update(Settings{Config: filepath.Join("conf", "custom.toml")})
		res, err := r.Resolve(doc)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "conf", "custom.toml"), res.Settings.Config)
	})

	t.Run("missing file is dropped", func(t *testing.T) {
		r.Update(Settings{Config: "missing.toml", Select: []string{"F"}})
		res, err := r.Resolve(doc)
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.Empty(t, res.Settings.Config)
		assert.Equal(t, []string{"F"}, res.Settings.Select)
	})

	t.Run("inline override is passed through", func(t *testing.T) {
		r.Update(Settings{Config: "lint.select = ['E']"})
		res, err := r.Resolve(doc)
		require.NoError(t, err)
		assert.Equal(t, "lint.select = ['E']", res.Settings.Config)
	})
}

func TestResolver_DefaultsAndCache(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, WithDefaults(Settings{Executable: "/opt/ruff", LineLength: intPtr(90)}))
	doc := filepath.Join(root, "a.py")

	res, err := r.Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ruff", res.Settings.Executable)

	// A project file created later is seen only after invalidation.
	writeFile(t, filepath.Join(root, "ruff.toml"), "line-length = 100\n")
	res, _ = r.Resolve(doc)
	assert.Empty(t, res.ProjectConfig)

	r.Invalidate()
	res, _ = r.Resolve(doc)
	assert.Equal(t, filepath.Join(root, "ruff.toml"), res.ProjectConfig)
	assert.Equal(t, "/opt/ruff", res.Settings.Executable)
	assert.Nil(t, res.Settings.LineLength)

	r.Update(Settings{Executable: "/usr/local/bin/ruff"})
	assert.Equal(t, "/usr/local/bin/ruff", r.Settings().Executable)
}

func TestResolver_ResultsAreCopies(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)
	r.Update(Settings{Select: []string{"E"}})
	doc := filepath.Join(root, "a.py")

	res, _ := r.Resolve(doc)
	res.Settings.Select[0] = "mutated"

	again, _ := r.Resolve(doc)
	assert.Equal(t, []string{"E"}, again.Settings.Select)
}

func TestResolver_SetRoot(t *testing.T) {
	parent := t.TempDir()
	writeFile(t, filepath.Join(parent, "ruff.toml"), "line-length = 100\n")
	ws := filepath.Join(parent, "ws")
	doc := filepath.Join(ws, "a.py")

	r := NewResolver(ws)
	res, _ := r.Resolve(doc)
	assert.Empty(t, res.ProjectConfig)

	r.SetRoot(parent)
	assert.Equal(t, parent, r.Root())
	res, _ = r.Resolve(doc)
	assert.Equal(t, filepath.Join(parent, "ruff.toml"), res.ProjectConfig)
}

func TestResolver_WatchesSearchedDirs(t *testing.T) {
	root := t.TempDir()
	w := &recordingWatcher{}
	r := NewResolver(root, WithDirWatcher(w))

	_, _ = r.Resolve(filepath.Join(root, "pkg", "a.py"))
	assert.Equal(t, []string{root, filepath.Join(root, "pkg")}, w.Dirs())
}

func TestResolver_Concurrent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.ruff]\n")
	r := NewResolver(root)
	doc := filepath.Join(root, "a.py")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Resolve(doc)
			assert.NoError(t, err)
			assert.Equal(t, filepath.Join(root, "pyproject.toml"), res.ProjectConfig)
		}()
		if i == 8 {
			r.Invalidate()
		}
	}
	wg.Wait()
}
