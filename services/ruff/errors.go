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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the ruff package.
var (
	// ErrExecutableNotFound indicates the ruff executable could not be started
	// or is not a working ruff.
	ErrExecutableNotFound = errors.New("ruff executable not found")

	// ErrRunFailed indicates ruff exited with a non-zero status.
	ErrRunFailed = errors.New("ruff execution failed")

	// ErrParseOutput indicates ruff's JSON output could not be decoded.
	ErrParseOutput = errors.New("failed to parse ruff output")

	// ErrConfigNotFound indicates the configured config path does not exist.
	ErrConfigNotFound = errors.New("ruff config file not found")

	// ErrInvalidSettings indicates host settings could not be decoded.
	ErrInvalidSettings = errors.New("invalid ruff settings")

	// ErrInvalidInput indicates invalid input to a package function.
	ErrInvalidInput = errors.New("invalid input")
)

// RunError wraps a failed ruff invocation with the command line and stderr.
//
// Thread Safety: Immutable after creation.
type RunError struct {
	// Argv is the full command line that was executed.
	Argv []string

	// Err is the underlying error.
	Err error

	// Stderr contains anything ruff wrote to stderr.
	Stderr string
}

// Error implements the error interface.
func (e *RunError) Error() string {
	cmd := strings.Join(e.Argv, " ")
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", cmd, e.Err, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError creates a new RunError.
//
// Description:
//
//	Creates an error carrying the command line that failed.
//
// Inputs:
//
//	argv - The executed command line
//	err - The underlying error
//
// Outputs:
//
//	*RunError - The wrapped error
func NewRunError(argv []string, err error) *RunError {
	return &RunError{
		Argv: append([]string(nil), argv...),
		Err:  err,
	}
}

// WithStderr returns a copy of the error with stderr attached.
func (e *RunError) WithStderr(stderr string) *RunError {
	return &RunError{
		Argv:   e.Argv,
		Err:    e.Err,
		Stderr: stderr,
	}
}
