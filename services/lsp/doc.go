// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lsp is a small language server host that dispatches editor
// requests to registered plugins.
//
// The host speaks JSON-RPC 2.0 over stdio using go.lsp.dev/jsonrpc2 and
// the types from go.lsp.dev/protocol. It keeps open documents in memory
// (full sync) and fans each request out to every registered Plugin:
//
//	textDocument/didOpen|didChange|didSave  → Plugin.OnOpen/OnChange/OnSave → publishDiagnostics
//	textDocument/didClose                   → Plugin.OnClose → empty publishDiagnostics
//	textDocument/formatting                 → Plugin.OnFormat
//	textDocument/codeAction                 → Plugin.OnCodeAction
//	workspace/didChangeConfiguration        → Plugin.OnSettings, then re-lint
//
// Plugins are registered imperatively before Serve:
//
//	registry := lsp.NewRegistry(logger)
//	server := lsp.NewServer(registry, lsp.WithLogger(logger))
//	_ = registry.Register(ruff.NewPlugin(ruff.WithNotifier(server)))
//	err := server.Serve(ctx, lsp.Stdio())
//
// # Concurrency
//
// Messages are handled one at a time in arrival order. A plugin call
// finishes before the next message is read.
package lsp
