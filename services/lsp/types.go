// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lsp

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf16"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// =============================================================================
// PLUGIN CONTRACT
// =============================================================================

// Plugin handles document events for the host.
//
// Every method is called synchronously from the message loop. Errors are
// logged by the host and never sent to the editor as fatal.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// OnSettings is called after initialize and on every
	// workspace/didChangeConfiguration.
	OnSettings(ctx context.Context, ws Workspace) error

	// OnOpen lints a newly opened document.
	OnOpen(ctx context.Context, doc Document) ([]protocol.Diagnostic, error)

	// OnChange lints a document after an edit.
	OnChange(ctx context.Context, doc Document) ([]protocol.Diagnostic, error)

	// OnSave lints a document after it was saved.
	OnSave(ctx context.Context, doc Document) ([]protocol.Diagnostic, error)

	// OnClose releases anything held for the document.
	OnClose(ctx context.Context, doc Document) error

	// OnFormat returns edits that format the whole document.
	OnFormat(ctx context.Context, doc Document, opts protocol.FormattingOptions) ([]protocol.TextEdit, error)

	// OnCodeAction returns the actions available for a range.
	OnCodeAction(ctx context.Context, doc Document, params protocol.CodeActionParams) ([]protocol.CodeAction, error)
}

// Notifier sends messages to the editor outside a request/response.
type Notifier interface {
	ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error
	LogMessage(ctx context.Context, typ protocol.MessageType, message string) error
}

// Workspace is the host state a plugin sees on settings changes.
type Workspace struct {
	// Root is the workspace root directory, "" when unknown.
	Root string

	// Settings is the raw settings object from initializationOptions or
	// the latest workspace/didChangeConfiguration.
	Settings json.RawMessage
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is an open text document.
type Document struct {
	URI        protocol.DocumentURI
	Path       string
	LanguageID string
	Version    int32
	Text       string
}

// Lines splits the text keeping line terminators, so joining the result
// reproduces Text. A trailing newline does not start a new line.
func (d Document) Lines() []string {
	if d.Text == "" {
		return nil
	}
	lines := strings.SplitAfter(d.Text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Line returns line n without its terminator, or "" if out of range.
func (d Document) Line(n int) string {
	lines := d.Lines()
	if n < 0 || n >= len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n], "\r\n")
}

// FullRange covers the whole document, ending at the start of the line
// after the last one.
func (d Document) FullRange() protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: uint32(len(d.Lines())), Character: 0},
	}
}

// UTF16Len returns the length of s in UTF-16 code units, the unit LSP
// positions are measured in.
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// PathFromURI converts a file URI to a filesystem path.
//
// Non-file URIs (untitled buffers, virtual documents) yield "".
func PathFromURI(u protocol.DocumentURI) (path string) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return ""
	}
	defer func() {
		if recover() != nil {
			path = ""
		}
	}()
	return uri.URI(u).Filename()
}
