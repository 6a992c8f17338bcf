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
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/ruffls/pkg/logging"
	"go.lsp.dev/protocol"
)

// ClientLogExporter forwards log entries to the editor as window/logMessage
// notifications so they show up in the client's output panel.
//
// It is created before the server exists and attached once the server is
// built; entries exported before Attach are dropped.
//
// Thread Safety: Safe for concurrent use.
type ClientLogExporter struct {
	mu       sync.RWMutex
	notifier Notifier
	min      logging.Level
}

var _ logging.LogExporter = (*ClientLogExporter)(nil)

// NewClientLogExporter creates an exporter forwarding entries at or above min.
func NewClientLogExporter(min logging.Level) *ClientLogExporter {
	return &ClientLogExporter{min: min}
}

// Attach sets the destination.
func (e *ClientLogExporter) Attach(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// Export sends one entry.
//
// Errors:
//
//	ErrNotConnected - no notifier attached yet
func (e *ClientLogExporter) Export(ctx context.Context, entry logging.LogEntry) error {
	if entry.Level < e.min {
		return nil
	}
	e.mu.RLock()
	n := e.notifier
	e.mu.RUnlock()
	if n == nil {
		return ErrNotConnected
	}
	return n.LogMessage(ctx, messageType(entry.Level), formatEntry(entry))
}

// Flush is a no-op; notifications are written as they are exported.
func (e *ClientLogExporter) Flush(context.Context) error { return nil }

// Close detaches the notifier.
func (e *ClientLogExporter) Close() error {
	e.Attach(nil)
	return nil
}

func messageType(l logging.Level) protocol.MessageType {
	switch l {
	case logging.LevelError:
		return protocol.MessageTypeError
	case logging.LevelWarn:
		return protocol.MessageTypeWarning
	case logging.LevelInfo:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}

// formatEntry renders "message key=value ..." with keys sorted.
func formatEntry(entry logging.LogEntry) string {
	if len(entry.Attrs) == 0 {
		return entry.Message
	}
	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entry.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Attrs[k])
	}
	return b.String()
}
