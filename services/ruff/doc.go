// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ruff bridges the language server host to the Ruff linter and
// formatter.
//
// Ruff does all of the parsing, linting and fixing. This package only
// translates between the editor and the ruff command line:
//
//	editor event → Resolver → Command → Runner → parse → Diagnostics / CodeActions
//
// # Components
//
//   - Resolver: merges host settings with defaults and drops the options a
//     project configuration file (pyproject.toml with [tool.ruff], ruff.toml,
//     .ruff.toml) takes over.
//   - Command: serializes resolved settings into `ruff check` or
//     `ruff format` arguments.
//   - Runner: runs one ruff subprocess per request with the document on
//     stdin and captures stdout.
//   - Diagnostics: maps findings to protocol diagnostics using the
//     three-tier severity policy.
//   - Actions: builds quick fixes, noqa disable actions, organize imports
//     and the safe-only "Fix All" action.
//
// # Severity Policy
//
//	| Tier | Source                                   | Example            |
//	|------|------------------------------------------|--------------------|
//	| 1    | severities override, longest prefix wins | "D2": "I" → D212   |
//	| 2    | built-in: E999 and F* are errors         | F401 → Error       |
//	| 3    | everything else                          | E501 → Warning     |
//
// # Failure Model
//
// A broken ruff installation degrades to "no diagnostics". Subprocess
// failures and malformed output are logged and produce empty results.
// A missing executable disables the plugin until the settings change.
//
// # Thread Safety
//
// Resolver, Runner and Plugin are safe for concurrent use.
package ruff
