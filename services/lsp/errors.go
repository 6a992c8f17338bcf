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
	"errors"
	"fmt"
)

// Sentinel errors for host operations.
var (
	// ErrDuplicatePlugin indicates a plugin with the same name is registered.
	ErrDuplicatePlugin = errors.New("plugin already registered")

	// ErrNilPlugin indicates Register was called with a nil plugin.
	ErrNilPlugin = errors.New("plugin must not be nil")

	// ErrDocumentNotOpen indicates a request referenced a document the
	// editor never opened.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrNotConnected indicates a notification was sent before Serve.
	ErrNotConnected = errors.New("server not connected")

	// ErrExitWithoutShutdown indicates the client sent exit without a
	// preceding shutdown request.
	ErrExitWithoutShutdown = errors.New("exit without shutdown")
)

// PluginError wraps an error returned by a plugin callback.
//
// Thread Safety: Immutable after creation.
type PluginError struct {
	// Plugin is the plugin name.
	Plugin string

	// Method is the LSP method being handled.
	Method string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s (%s): %v", e.Plugin, e.Method, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PluginError) Unwrap() error {
	return e.Err
}
