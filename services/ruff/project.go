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
	"strings"

	"github.com/BurntSushi/toml"
)

// Project configuration file names ruff reads on its own.
const (
	pyprojectFile = "pyproject.toml"
	ruffTOMLFile  = "ruff.toml"
	dotRuffTOML   = ".ruff.toml"
)

// projectConfigNames lists every file whose change can alter resolution.
var projectConfigNames = []string{pyprojectFile, ruffTOMLFile, dotRuffTOML}

// isProjectConfigName reports whether base is one of projectConfigNames.
func isProjectConfigName(base string) bool {
	for _, n := range projectConfigNames {
		if base == n {
			return true
		}
	}
	return false
}

// searchDirs returns the directories from the document's directory up to
// root, nearest first.
//
// Description:
//
//	When root is empty only the document's own directory is searched, so
//	an unrelated pyproject.toml higher up never overrides the editor's
//	settings. When the document is outside root nothing is searched.
//
// Inputs:
//
//	root - Workspace root (may be empty)
//	documentPath - Absolute document path
//
// Outputs:
//
//	[]string - Directories to search
func searchDirs(root, documentPath string) []string {
	if documentPath == "" {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(documentPath))
	if root == "" {
		return []string{dir}
	}

	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}

	var dirs []string
	for {
		dirs = append(dirs, dir)
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// findParents returns the matching files in the nearest directory, walking
// from the document up to root, that contains any of names.
func findParents(root, documentPath string, names ...string) []string {
	for _, dir := range searchDirs(root, documentPath) {
		var found []string
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				found = append(found, candidate)
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

// pyprojectHasRuff reports whether a pyproject.toml has a [tool.ruff] table.
//
// A file that cannot be parsed is logged and treated as having no ruff
// configuration.
func pyprojectHasRuff(path string, logger *slog.Logger) bool {
	var doc struct {
		Tool map[string]toml.Primitive `toml:"tool"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		logger.Warn("Error while parsing toml file, ignoring config",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false
	}
	_, ok := doc.Tool["ruff"]
	return ok
}

// findProjectConfig locates the project configuration ruff will use.
//
// Description:
//
//	The nearest pyproject.toml counts only if it has a [tool.ruff] table.
//	The nearest ruff.toml or .ruff.toml always counts.
//
// Inputs:
//
//	root - Workspace root (may be empty)
//	documentPath - Absolute document path
//	logger - Destination for TOML parse warnings
//
// Outputs:
//
//	string - Path of the configuration file, "" if none
func findProjectConfig(root, documentPath string, logger *slog.Logger) string {
	if found := findParents(root, documentPath, pyprojectFile); len(found) > 0 {
		if pyprojectHasRuff(found[0], logger) {
			return found[0]
		}
	}
	if found := findParents(root, documentPath, ruffTOMLFile, dotRuffTOML); len(found) > 0 {
		return found[0]
	}
	return ""
}
