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
	"sync"

	"go.lsp.dev/protocol"
)

// fakePlugin records calls and returns canned results.
type fakePlugin struct {
	name string

	mu         sync.Mutex
	settings   []Workspace
	events     []string
	closed     []protocol.DocumentURI
	diags      []protocol.Diagnostic
	edits      []protocol.TextEdit
	actions    []protocol.CodeAction
	lintErr    error
	formatErr  error
	actionErr  error
	settingErr error
}

func newFakePlugin(name string) *fakePlugin {
	return &fakePlugin{name: name}
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) OnSettings(_ context.Context, ws Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, ws)
	return f.settingErr
}

func (f *fakePlugin) lint(event string) ([]protocol.Diagnostic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if f.lintErr != nil {
		return nil, f.lintErr
	}
	return f.diags, nil
}

func (f *fakePlugin) OnOpen(_ context.Context, _ Document) ([]protocol.Diagnostic, error) {
	return f.lint("open")
}

func (f *fakePlugin) OnChange(_ context.Context, _ Document) ([]protocol.Diagnostic, error) {
	return f.lint("change")
}

func (f *fakePlugin) OnSave(_ context.Context, _ Document) ([]protocol.Diagnostic, error) {
	return f.lint("save")
}

func (f *fakePlugin) OnClose(_ context.Context, doc Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, doc.URI)
	return nil
}

func (f *fakePlugin) OnFormat(_ context.Context, _ Document, _ protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	return f.edits, f.formatErr
}

func (f *fakePlugin) OnCodeAction(_ context.Context, _ Document, _ protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	return f.actions, f.actionErr
}

func (f *fakePlugin) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakePlugin) Settings() []Workspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Workspace, len(f.settings))
	copy(out, f.settings)
	return out
}
