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
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// =============================================================================
// COMMAND BUILDER
// =============================================================================

// Subcommand is a ruff subcommand.
type Subcommand string

const (
	// SubcommandCheck lints, or fixes with Command.Fix.
	SubcommandCheck Subcommand = "check"

	// SubcommandFormat formats.
	SubcommandFormat Subcommand = "format"
)

// String implements fmt.Stringer.
func (s Subcommand) String() string {
	return string(s)
}

// Command describes one ruff invocation.
//
// Args is deterministic: the same Command always yields the same
// arguments in the same order.
type Command struct {
	// Subcommand selects check or format.
	Subcommand Subcommand

	// DocumentPath is passed as --stdin-filename so ruff applies
	// per-file configuration to unsaved buffers. May be empty.
	DocumentPath string

	// Settings are the resolved plugin settings.
	Settings Settings

	// Fix makes `ruff check` print the fixed source instead of findings.
	Fix bool

	// SafeFixesOnly emits --no-unsafe-fixes with Fix so a project file
	// that enables unsafe fixes cannot turn them back on.
	SafeFixesOnly bool

	// ExtraArgs are appended just before the stdin marker.
	ExtraArgs []string

	// LegacyOutputFormat selects --format=json for ruff releases that
	// predate --output-format.
	LegacyOutputFormat bool
}

// Args returns the arguments that follow the subcommand.
//
// Description:
//
//	Check and format accept different flag sets, so lint-only flags are
//	never emitted for format. The last two arguments are always "--" and
//	"-" so the document is read from stdin.
//
// Outputs:
//
//	[]string - The argument list
func (c Command) Args() []string {
	switch c.Subcommand {
	case SubcommandFormat:
		return c.formatArgs()
	default:
		return c.checkArgs()
	}
}

func (c Command) checkArgs() []string {
	s := c.Settings
	args := []string{
		// Suppress update announcements
		"--quiet",
		// Findings are not a failure
		"--exit-zero",
	}
	if c.LegacyOutputFormat {
		args = append(args, "--format=json")
	} else {
		args = append(args, "--output-format=json")
	}
	args = append(args, "--extension=ipynb:python")

	if c.Fix {
		args = append(args, "--fix")
	} else {
		// --no-fix keeps findings on stdout instead of the fixed file
		args = append(args, "--no-fix")
	}
	args = append(args, "--force-exclude")

	if c.DocumentPath != "" {
		args = append(args, "--stdin-filename="+c.DocumentPath)
	}
	if s.Config != "" {
		args = append(args, "--config="+s.Config)
	}
	if s.LineLength != nil {
		args = append(args, "--line-length="+strconv.Itoa(*s.LineLength))
	}
	if s.Preview {
		args = append(args, "--preview")
	}
	switch {
	case c.Fix && c.SafeFixesOnly:
		args = append(args, "--no-unsafe-fixes")
	case s.UnsafeFixes:
		args = append(args, "--unsafe-fixes")
	}
	args = appendList(args, "--exclude", s.Exclude)
	args = appendList(args, "--select", s.Select)
	args = appendList(args, "--extend-select", s.ExtendSelect)
	args = appendList(args, "--ignore", s.Ignore)
	args = appendList(args, "--extend-ignore", s.ExtendIgnore)
	if s.TargetVersion != "" {
		args = append(args, "--target-version="+s.TargetVersion)
	}

	for _, pfi := range s.PerFileIgnores {
		if !MatchPath(c.DocumentPath, pfi.Pattern) {
			continue
		}
		args = appendList(args, "--ignore", pfi.Codes)
	}

	args = append(args, c.ExtraArgs...)
	return append(args, "--", "-")
}

func (c Command) formatArgs() []string {
	s := c.Settings
	args := []string{"--quiet", "--force-exclude"}

	if c.DocumentPath != "" {
		args = append(args, "--stdin-filename="+c.DocumentPath)
	}
	if s.Config != "" {
		args = append(args, "--config="+s.Config)
	}
	args = appendList(args, "--exclude", s.Exclude)
	if s.Preview {
		args = append(args, "--preview")
	}
	if s.LineLength != nil {
		args = append(args, "--line-length="+strconv.Itoa(*s.LineLength))
	}
	if s.TargetVersion != "" {
		args = append(args, "--target-version="+s.TargetVersion)
	}

	args = append(args, c.ExtraArgs...)
	return append(args, "--", "-")
}

// appendList adds flag=a,b,c when values is non-empty.
func appendList(args []string, flag string, values []string) []string {
	if len(values) == 0 {
		return args
	}
	return append(args, flag+"="+strings.Join(values, ","))
}

// =============================================================================
// PATH MATCHING
// =============================================================================

// MatchPath reports whether docPath matches a per-file-ignores pattern.
//
// Description:
//
//	Relative patterns are matched against the trailing path components,
//	so "tests/*.py" matches "/repo/pkg/tests/test_a.py". Absolute
//	patterns must match the whole path. Each component is a shell glob
//	where * and ? never cross a separator and [!x] negates a class.
//
// Inputs:
//
//	docPath - The document path (may be empty)
//	pattern - The configured glob
//
// Outputs:
//
//	bool - True on match
func MatchPath(docPath, pattern string) bool {
	if docPath == "" || pattern == "" {
		return false
	}

	pathParts := splitPath(filepath.ToSlash(docPath))
	patParts := splitPath(filepath.ToSlash(pattern))
	if len(patParts) == 0 {
		return false
	}

	absPattern := strings.HasPrefix(filepath.ToSlash(pattern), "/")
	if absPattern {
		if !strings.HasPrefix(filepath.ToSlash(docPath), "/") || len(pathParts) != len(patParts) {
			return false
		}
	} else if len(patParts) > len(pathParts) {
		return false
	}

	offset := len(pathParts) - len(patParts)
	for i, pat := range patParts {
		ok, err := path.Match(translateGlob(pat), pathParts[offset+i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// splitPath splits a slash path into non-empty, non-"." components.
func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

// translateGlob converts shell-style negated classes to Go syntax.
func translateGlob(pattern string) string {
	return strings.ReplaceAll(pattern, "[!", "[^")
}
