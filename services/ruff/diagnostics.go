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
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// diagnosticSource tags every diagnostic this package produces.
const diagnosticSource = "ruff"

// NewDiagnostic converts a finding to a protocol diagnostic.
//
// Description:
//
//	Ruff reports 1-based rows and columns; the protocol wants 0-based
//	lines and characters. The fix, when present, travels in Data so a
//	later code action request can rebuild the edit without re-running
//	ruff.
//
// Inputs:
//
//	f - The finding
//	overrides - Configured severity overrides
//
// Outputs:
//
//	protocol.Diagnostic - The diagnostic
func NewDiagnostic(f Finding, overrides SeverityOverrides) protocol.Diagnostic {
	d := protocol.Diagnostic{
		Range: protocol.Range{
			Start: toPosition(f.Location),
			End:   toPosition(f.EndLocation),
		},
		Severity: SeverityFor(f.Code, overrides),
		Source:   diagnosticSource,
		Message:  f.Message,
	}
	if f.Code != "" {
		d.Code = f.Code
	}
	if unnecessaryCodes[f.Code] {
		d.Tags = []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}
	}
	if f.URL != "" {
		d.CodeDescription = &protocol.CodeDescription{Href: uri.URI(f.URL)}
	}
	if f.Fix != nil {
		d.Data = f.Fix
	}
	return d
}

// Diagnostics converts every finding. The result is never nil.
func Diagnostics(findings []Finding, overrides SeverityOverrides) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, NewDiagnostic(f, overrides))
	}
	return out
}

func toPosition(l Location) protocol.Position {
	return protocol.Position{
		Line:      uint32(max(l.Row-1, 0)),
		Character: uint32(max(l.Column-1, 0)),
	}
}

// diagnosticCode returns the rule code of a diagnostic that may have made
// a round trip through the editor.
func diagnosticCode(d protocol.Diagnostic) string {
	code, _ := d.Code.(string)
	return code
}
