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
	"strings"

	"go.lsp.dev/protocol"
)

// =============================================================================
// SEVERITY POLICY
// =============================================================================

// ParseSeverity converts an override value to a protocol severity.
//
// Description:
//
//	Accepts the single letters E, W, I and H as well as the full names
//	(error, warning, information, info, hint). Matching is case-insensitive.
//
// Inputs:
//
//	level - The configured override value
//
// Outputs:
//
//	protocol.DiagnosticSeverity - The severity
//	bool - False if the value is unknown
func ParseSeverity(level string) (protocol.DiagnosticSeverity, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "e", "error":
		return protocol.DiagnosticSeverityError, true
	case "w", "warning", "warn":
		return protocol.DiagnosticSeverityWarning, true
	case "i", "information", "info":
		return protocol.DiagnosticSeverityInformation, true
	case "h", "hint":
		return protocol.DiagnosticSeverityHint, true
	default:
		return 0, false
	}
}

// Match returns the override whose pattern is the longest prefix of code.
//
// Description:
//
//	Among all patterns that prefix the code, the longest wins. When two
//	patterns of the same length match, the one declared first wins.
//
// Inputs:
//
//	code - The finding's rule code
//
// Outputs:
//
//	SeverityOverride - The winning override
//	bool - False if no pattern matches
func (o SeverityOverrides) Match(code string) (SeverityOverride, bool) {
	best := -1
	for i, ov := range o {
		if !strings.HasPrefix(code, ov.Pattern) {
			continue
		}
		if best < 0 || len(ov.Pattern) > len(o[best].Pattern) {
			best = i
		}
	}
	if best < 0 {
		return SeverityOverride{}, false
	}
	return o[best], true
}

// DefaultSeverity returns the built-in severity for a code.
//
// Syntax errors (E999, or the empty code newer ruff versions use for
// them) and all pyflakes (F) codes are errors. Everything else is a
// warning.
func DefaultSeverity(code string) protocol.DiagnosticSeverity {
	if code == "" || code == codeSyntaxError || strings.HasPrefix(code, "F") {
		return protocol.DiagnosticSeverityError
	}
	return protocol.DiagnosticSeverityWarning
}

// SeverityFor applies the three-tier policy to a code.
//
// Description:
//
//	1. The longest matching override, if its value is known.
//	2. The built-in default for E999 and F codes.
//	3. Warning.
//
// An override with an unknown value is ignored and the code falls through
// to the built-in default.
func SeverityFor(code string, overrides SeverityOverrides) protocol.DiagnosticSeverity {
	if ov, ok := overrides.Match(code); ok {
		if sev, ok := ParseSeverity(ov.Level); ok {
			return sev
		}
	}
	return DefaultSeverity(code)
}
