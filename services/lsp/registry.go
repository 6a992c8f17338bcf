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
	"fmt"
	"log/slog"
	"sync"

	"go.lsp.dev/protocol"
)

// LintEvent names the document event that triggered linting.
type LintEvent string

const (
	LintOnOpen   LintEvent = "open"
	LintOnChange LintEvent = "change"
	LintOnSave   LintEvent = "save"
)

// Registry holds the plugins a server dispatches to, in registration order.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	names   map[string]bool
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		names:  make(map[string]bool),
		logger: logger,
	}
}

// Register adds a plugin.
//
// Errors:
//
//	ErrNilPlugin - p is nil
//	ErrDuplicatePlugin - a plugin with the same name exists
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return ErrNilPlugin
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[p.Name()] {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name())
	}
	r.names[p.Name()] = true
	r.plugins = append(r.plugins, p)
	r.logger.Info("Plugin registered", slog.String("plugin", p.Name()))
	return nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

func (r *Registry) report(method string, p Plugin, err error) {
	perr := &PluginError{Plugin: p.Name(), Method: method, Err: err}
	r.logger.Error("Plugin failed",
		slog.String("plugin", perr.Plugin),
		slog.String("method", perr.Method),
		slog.String("error", perr.Err.Error()),
	)
}

// Configure passes workspace settings to every plugin.
func (r *Registry) Configure(ctx context.Context, ws Workspace) {
	for _, p := range r.Plugins() {
		if err := p.OnSettings(ctx, ws); err != nil {
			r.report("workspace/didChangeConfiguration", p, err)
		}
	}
}

// Lint collects diagnostics from every plugin for a document event.
//
// A failing plugin contributes no diagnostics; the others still run.
// The result is never nil so it always serializes as a JSON array.
func (r *Registry) Lint(ctx context.Context, event LintEvent, doc Document) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0)
	for _, p := range r.Plugins() {
		var (
			diags []protocol.Diagnostic
			err   error
		)
		switch event {
		case LintOnOpen:
			diags, err = p.OnOpen(ctx, doc)
		case LintOnSave:
			diags, err = p.OnSave(ctx, doc)
		default:
			diags, err = p.OnChange(ctx, doc)
		}
		if err != nil {
			r.report("lint/"+string(event), p, err)
			continue
		}
		diagnostics = append(diagnostics, diags...)
	}
	return diagnostics
}

// Close notifies every plugin that a document was closed.
func (r *Registry) Close(ctx context.Context, doc Document) {
	for _, p := range r.Plugins() {
		if err := p.OnClose(ctx, doc); err != nil {
			r.report(protocol.MethodTextDocumentDidClose, p, err)
		}
	}
}

// Format returns the edits of the first plugin that formats the document.
func (r *Registry) Format(ctx context.Context, doc Document, opts protocol.FormattingOptions) []protocol.TextEdit {
	for _, p := range r.Plugins() {
		edits, err := p.OnFormat(ctx, doc, opts)
		if err != nil {
			r.report(protocol.MethodTextDocumentFormatting, p, err)
			continue
		}
		if len(edits) > 0 {
			return edits
		}
	}
	return nil
}

// CodeActions collects code actions from every plugin.
func (r *Registry) CodeActions(ctx context.Context, doc Document, params protocol.CodeActionParams) []protocol.CodeAction {
	actions := make([]protocol.CodeAction, 0)
	for _, p := range r.Plugins() {
		acts, err := p.OnCodeAction(ctx, doc, params)
		if err != nil {
			r.report(protocol.MethodTextDocumentCodeAction, p, err)
			continue
		}
		actions = append(actions, acts...)
	}
	return actions
}
