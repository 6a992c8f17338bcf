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
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/mod/semver"
)

// outputFormatSince is the first ruff release that accepts --output-format.
const outputFormatSince = "v0.0.291"

// unsafeFixesSince is the first ruff release that knows about unsafe fixes.
const unsafeFixesSince = "v0.1.0"

// probeResult is a cached --version answer.
type probeResult struct {
	version string
	err     error
}

// Probe runs `<base> --version` and reports whether base is a working ruff.
//
// Description:
//
//	The answer is cached per command prefix until ResetVersions. A
//	version string that cannot be parsed is not an error; an executable
//	that cannot start or exits non-zero is.
//
// Inputs:
//
//	ctx - Context for cancellation
//	base - Command prefix from BaseCommand
//
// Outputs:
//
//	string - Canonical semver such as "v0.4.1", or "" if unknown
//	error - Wraps ErrExecutableNotFound when base is not a usable ruff
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) Probe(ctx context.Context, base []string) (string, error) {
	key := strings.Join(base, "\x00")

	r.versionsMu.Lock()
	res, ok := r.versions[key]
	r.versionsMu.Unlock()
	if ok {
		return res.version, res.err
	}

	argv := append(append([]string(nil), base...), "--version")
	out, err := r.exec.Execute(ctx, argv, nil)
	if ctx.Err() != nil {
		// A canceled probe says nothing about the executable.
		return "", ctx.Err()
	}
	switch {
	case err != nil:
		res.err = NewRunError(argv, fmt.Errorf("%w: %v", ErrExecutableNotFound, err))
	case out.ExitCode != 0:
		res.err = NewRunError(argv, ErrExecutableNotFound).WithStderr(string(out.Stderr))
	default:
		res.version = parseVersion(string(out.Stdout))
	}
	if res.version == "" {
		r.logger.Debug("Could not determine ruff version",
			slog.Any("argv", argv),
		)
	}

	r.versionsMu.Lock()
	r.versions[key] = res
	r.versionsMu.Unlock()
	return res.version, res.err
}

// Version returns the semantic version of the ruff behind base, or "" if
// it is unknown. See Probe.
func (r *Runner) Version(ctx context.Context, base []string) string {
	v, _ := r.Probe(ctx, base)
	return v
}

// ResetVersions forgets every probed version.
func (r *Runner) ResetVersions() {
	r.versionsMu.Lock()
	defer r.versionsMu.Unlock()
	r.versions = make(map[string]probeResult)
}

// usesLegacyOutputFormat reports whether ruff predates --output-format.
func (r *Runner) usesLegacyOutputFormat(ctx context.Context, base []string) bool {
	return r.olderThan(ctx, base, outputFormatSince)
}

// olderThan reports whether the ruff behind base predates release.
// Unknown versions are assumed current.
func (r *Runner) olderThan(ctx context.Context, base []string, release string) bool {
	v := r.Version(ctx, base)
	if v == "" {
		return false
	}
	return semver.Compare(v, release) < 0
}

// parseVersion extracts a canonical semver from `ruff --version` output
// such as "ruff 0.4.1" or "ruff 0.1.5 (abc123 2023-11-03)".
func parseVersion(output string) string {
	fields := strings.Fields(output)
	for _, f := range fields {
		candidate := f
		if !strings.HasPrefix(candidate, "v") {
			candidate = "v" + candidate
		}
		if semver.IsValid(candidate) {
			return semver.Canonical(candidate)
		}
	}
	return ""
}

// versionString renders a version for logs.
func versionString(v string) string {
	if v == "" {
		return "unknown"
	}
	return fmt.Sprintf("ruff %s", strings.TrimPrefix(v, "v"))
}
