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
	"strings"

	"go.lsp.dev/protocol"

	"github.com/AleutianAI/ruffls/services/lsp"
)

// =============================================================================
// CODE ACTIONS
// =============================================================================

// Action kinds used in metrics.
const (
	actionKindFix     = "fix"
	actionKindDisable = "disable"
	actionKindImports = "organize_imports"
	actionKindFixAll  = "fix_all"
)

// fixAction builds the quick fix applying one finding's fix.
func fixAction(doc lsp.Document, d protocol.Diagnostic, fix *Fix, message string) protocol.CodeAction {
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Ruff (%s): %s", diagnosticCode(d), message),
		Kind:        protocol.QuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        workspaceEdit(doc.URI, textEdits(fix)),
	}
}

// organizeImportsAction builds the source action for an I001 fix.
func organizeImportsAction(doc lsp.Document, d protocol.Diagnostic, fix *Fix, message string) protocol.CodeAction {
	return protocol.CodeAction{
		Title:       "Ruff: " + message,
		Kind:        protocol.SourceOrganizeImports,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        workspaceEdit(doc.URI, textEdits(fix)),
	}
}

// disableAction builds the quick fix that adds the diagnostic's code to a
// noqa comment on its line.
func disableAction(doc lsp.Document, d protocol.Diagnostic) protocol.CodeAction {
	code := diagnosticCode(d)
	n := int(d.Range.Start.Line)
	line := doc.Line(n)

	return protocol.CodeAction{
		Title:       fmt.Sprintf("Ruff (%s): Disable for this line", code),
		Kind:        protocol.QuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit: workspaceEdit(doc.URI, []protocol.TextEdit{{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(n), Character: 0},
				End:   protocol.Position{Line: uint32(n), Character: uint32(lsp.UTF16Len(line))},
			},
			NewText: disableLine(line, code),
		}}),
	}
}

// fixAllAction builds the action replacing the whole document with fixed.
// It reports false when fixed is empty or identical to the document.
func fixAllAction(doc lsp.Document, fixed string) (protocol.CodeAction, bool) {
	if fixed == "" || fixed == doc.Text {
		return protocol.CodeAction{}, false
	}
	return protocol.CodeAction{
		Title: "Ruff: Fix All",
		Kind:  lsp.SourceFixAll,
		Edit: workspaceEdit(doc.URI, []protocol.TextEdit{{
			Range:   doc.FullRange(),
			NewText: fixed,
		}}),
	}, true
}

// fixMessage returns the title text for a fix, or false when the fix is
// unsafe and unsafe fixes are off.
func fixMessage(fix *Fix, unsafeFixes bool) (string, bool) {
	if fix.IsUnsafe() {
		if !unsafeFixes {
			return "", false
		}
		return fix.Message + " (unsafe)", true
	}
	return fix.Message, true
}

// textEdits converts ruff's 1-based edits to protocol edits.
func textEdits(fix *Fix) []protocol.TextEdit {
	if fix == nil {
		return nil
	}
	edits := make([]protocol.TextEdit, 0, len(fix.Edits))
	for _, e := range fix.Edits {
		edits = append(edits, protocol.TextEdit{
			Range: protocol.Range{
				Start: toPosition(e.Location),
				End:   toPosition(e.EndLocation),
			},
			NewText: e.Content,
		})
	}
	return edits
}

func workspaceEdit(u protocol.DocumentURI, edits []protocol.TextEdit) *protocol.WorkspaceEdit {
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{u: edits},
	}
}

// filterKinds keeps the actions whose kind falls under one of only.
// Kinds are hierarchical: "source" admits "source.fixAll".
func filterKinds(actions []protocol.CodeAction, only []protocol.CodeActionKind) []protocol.CodeAction {
	if len(only) == 0 {
		return actions
	}
	out := make([]protocol.CodeAction, 0, len(actions))
	for _, a := range actions {
		for _, k := range only {
			if a.Kind == k || strings.HasPrefix(string(a.Kind), string(k)+".") {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// wantsKind reports whether a request restricted to only can use kind.
func wantsKind(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	return len(filterKinds([]protocol.CodeAction{{Kind: kind}}, only)) > 0
}
