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
	"io"
	"os"

	"go.uber.org/multierr"
)

// readWriteCloser joins a reader and a writer into one stream.
type readWriteCloser struct {
	io.ReadCloser
	io.WriteCloser
}

// Close closes both halves and reports every failure.
func (rwc readWriteCloser) Close() error {
	return multierr.Append(rwc.ReadCloser.Close(), rwc.WriteCloser.Close())
}

// Stdio returns the process's stdin and stdout as one stream.
func Stdio() io.ReadWriteCloser {
	return readWriteCloser{ReadCloser: os.Stdin, WriteCloser: os.Stdout}
}

// NewStream joins an arbitrary reader and writer, e.g. the two ends of a
// pipe in tests.
func NewStream(r io.ReadCloser, w io.WriteCloser) io.ReadWriteCloser {
	return readWriteCloser{ReadCloser: r, WriteCloser: w}
}
