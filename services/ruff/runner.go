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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/AleutianAI/ruffls/services/telemetry"
	"github.com/google/uuid"
)

// =============================================================================
// PROCESS INVOKER
// =============================================================================

// Output is what a finished subprocess produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor starts a subprocess and waits for it.
//
// Implementations return an error only when the process could not be
// started or waited for. A non-zero exit is reported through
// Output.ExitCode.
type Executor interface {
	Execute(ctx context.Context, argv []string, stdin []byte) (Output, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// Execute implements Executor.
func (ExecExecutor) Execute(ctx context.Context, argv []string, stdin []byte) (Output, error) {
	if len(argv) == 0 {
		return Output{}, fmt.Errorf("%w: empty command line", ErrInvalidInput)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, err
}

// Runner invokes ruff, one subprocess per request.
//
// Description:
//
//	Resolves the executable, builds the argument list, writes the document
//	to stdin and returns stdout. Failures are logged here and returned
//	as errors the caller is expected to treat as "no output".
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	exec     Executor
	logger   *slog.Logger
	lookPath func(string) (string, error)
	python   string

	versionsMu sync.Mutex
	versions   map[string]probeResult
}

// Option configures the Runner.
type Option func(*Runner)

// WithExecutor replaces the subprocess executor. Used by tests.
func WithExecutor(e Executor) Option {
	return func(r *Runner) {
		r.exec = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLookPath replaces exec.LookPath when searching for ruff on PATH.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// WithPython sets the interpreter used for the `python -m ruff` fallback.
func WithPython(python string) Option {
	return func(r *Runner) {
		r.python = python
	}
}

// NewRunner creates a new ruff runner.
//
// Description:
//
//	Defaults to os/exec, exec.LookPath and python3 for the module
//	fallback.
//
// Inputs:
//
//	opts - Optional configuration options
//
// Outputs:
//
//	*Runner - The configured runner
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		exec:     ExecExecutor{},
		logger:   slog.Default(),
		lookPath: exec.LookPath,
		python:   "python3",
		versions: make(map[string]probeResult),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseCommand returns the command prefix used to invoke ruff.
//
// Description:
//
//	The configured executable wins. Otherwise ruff is searched on PATH,
//	and as a last resort it runs as a Python module.
//
// Inputs:
//
//	settings - Resolved settings
//
// Outputs:
//
//	[]string - e.g. ["/usr/bin/ruff"] or ["python3", "-m", "ruff"]
func (r *Runner) BaseCommand(settings Settings) []string {
	if settings.Executable != "" {
		return []string{settings.Executable}
	}
	if p, err := r.lookPath("ruff"); err == nil {
		return []string{p}
	}
	return []string{r.python, "-m", "ruff"}
}

// Run executes ruff with the document on stdin.
//
// Description:
//
//	Builds the full command line from cmd, runs it to completion and
//	returns stdout. Every run gets a run id that tags its log lines
//	and span.
//
// Inputs:
//
//	ctx - Context for cancellation
//	cmd - The invocation to run
//	source - Document text written to stdin
//
// Outputs:
//
//	[]byte - ruff's stdout; nil on any failure
//	error - Non-nil on failure
//
// Errors:
//
//	ErrExecutableNotFound - The executable could not be started, or the
//	python fallback has no ruff module
//	ErrRunFailed - ruff exited non-zero or could not be waited for
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) Run(ctx context.Context, cmd Command, source []byte) ([]byte, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	runID := uuid.NewString()
	ctx, span := startRunSpan(ctx, cmd.Subcommand, cmd.DocumentPath, runID)
	defer span.End()
	start := time.Now()

	base := r.BaseCommand(cmd.Settings)
	if cmd.Subcommand == SubcommandCheck && !cmd.LegacyOutputFormat {
		cmd.LegacyOutputFormat = r.usesLegacyOutputFormat(ctx, base)
	}
	if cmd.SafeFixesOnly && r.olderThan(ctx, base, unsafeFixesSince) {
		cmd.SafeFixesOnly = false
	}

	argv := make([]string, 0, len(base)+1+16)
	argv = append(argv, base...)
	argv = append(argv, cmd.Subcommand.String())
	argv = append(argv, cmd.Args()...)

	logger := telemetry.LoggerWithTrace(ctx, r.logger).With(slog.String("run_id", runID))
	logger.Debug("Running ruff",
		slog.Any("argv", argv),
		slog.String("document", cmd.DocumentPath),
	)

	out, err := r.exec.Execute(ctx, argv, source)
	duration := time.Since(start)
	if err != nil {
		recordRunMetrics(ctx, cmd.Subcommand, duration, false)
		telemetry.RecordError(span, err)

		sentinel := ErrRunFailed
		if cannotStart(err) {
			sentinel = ErrExecutableNotFound
		}
		runErr := NewRunError(argv, fmt.Errorf("%w: %v", sentinel, err))
		logger.Error("Can't execute ruff",
			slog.String("executable", base[0]),
			slog.String("error", err.Error()),
		)
		return nil, runErr
	}

	setRunSpanResult(span, out.ExitCode, len(out.Stdout))
	if out.ExitCode != 0 {
		recordRunMetrics(ctx, cmd.Subcommand, duration, false)
		sentinel := ErrRunFailed
		if r.missingModule(base, out.Stderr) {
			sentinel = ErrExecutableNotFound
		}
		runErr := NewRunError(argv, sentinel).WithStderr(string(out.Stderr))
		telemetry.RecordErrorf(span, "ruff exited with status %d", out.ExitCode)
		logger.Error("Error running ruff",
			slog.Int("exit_code", out.ExitCode),
			slog.String("stderr", string(out.Stderr)),
		)
		return nil, runErr
	}

	recordRunMetrics(ctx, cmd.Subcommand, duration, true)
	telemetry.SetSpanOK(span)
	logger.Debug("Ruff completed",
		slog.Duration("duration", duration),
		slog.Int("stdout_bytes", len(out.Stdout)),
	)
	return out.Stdout, nil
}

// Check runs `ruff check` and parses the findings.
//
// Description:
//
//	Failures are logged by Run and returned with no findings. The
//	language server treats any error as an empty result; `ruffls check`
//	reports it as a failed file.
//
// Inputs:
//
//	ctx - Context for cancellation
//	documentPath - Path used for --stdin-filename
//	source - Document text
//	settings - Resolved settings
//
// Outputs:
//
//	[]Finding - Findings, nil on failure
//	error - Non-nil on failure
//
// Errors:
//
//	ErrExecutableNotFound - ruff could not be started
//	ErrRunFailed - ruff exited non-zero
//	ErrParseOutput - stdout was not ruff's JSON
func (r *Runner) Check(ctx context.Context, documentPath string, source []byte, settings Settings) ([]Finding, error) {
	stdout, err := r.Run(ctx, Command{
		Subcommand:   SubcommandCheck,
		DocumentPath: documentPath,
		Settings:     settings,
	}, source)
	if err != nil {
		return nil, err
	}

	findings, err := ParseFindings(stdout)
	if err != nil {
		r.logger.Error("Malformed ruff output",
			slog.String("document", documentPath),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	recordFindings(ctx, len(findings))
	return findings, nil
}

// Fix runs `ruff check --fix` and returns the fixed source.
//
// Description:
//
//	Unsafe fixes are applied only if settings.UnsafeFixes is set.
//
// Outputs:
//
//	string - The fixed document, or "" on failure
//	error - Non-nil on failure, see Run
func (r *Runner) Fix(ctx context.Context, documentPath string, source []byte, settings Settings) (string, error) {
	return r.fix(ctx, documentPath, source, settings, false)
}

// FixSafe is Fix restricted to safe fixes, whatever the settings or the
// project configuration say.
func (r *Runner) FixSafe(ctx context.Context, documentPath string, source []byte, settings Settings) (string, error) {
	safe := settings.Clone()
	safe.UnsafeFixes = false
	return r.fix(ctx, documentPath, source, safe, true)
}

func (r *Runner) fix(ctx context.Context, documentPath string, source []byte, settings Settings, safeOnly bool) (string, error) {
	stdout, err := r.Run(ctx, Command{
		Subcommand:    SubcommandCheck,
		DocumentPath:  documentPath,
		Settings:      settings,
		Fix:           true,
		SafeFixesOnly: safeOnly,
	}, source)
	if err != nil {
		return "", err
	}
	return string(stdout), nil
}

// Format runs `ruff format` and returns the formatted source.
//
// Outputs:
//
//	string - The formatted document, or "" on failure
//	error - Non-nil on failure, see Run
func (r *Runner) Format(ctx context.Context, documentPath string, source []byte, settings Settings) (string, error) {
	stdout, err := r.Run(ctx, Command{
		Subcommand:   SubcommandFormat,
		DocumentPath: documentPath,
		Settings:     settings,
	}, source)
	if err != nil {
		return "", err
	}
	return string(stdout), nil
}

// cannotStart reports whether an Execute error means the executable
// itself is unusable: missing, not executable, or a directory.
func cannotStart(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, exec.ErrDot) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

// missingModule reports whether a `python -m ruff` run failed because the
// ruff module is not installed for that interpreter.
func (r *Runner) missingModule(base []string, stderr []byte) bool {
	if len(base) != 3 || base[1] != "-m" || base[2] != "ruff" {
		return false
	}
	return bytes.Contains(stderr, []byte("No module named ruff"))
}
