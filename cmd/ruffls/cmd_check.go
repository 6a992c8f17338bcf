// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/ruffls/pkg/ux"
	"github.com/AleutianAI/ruffls/services/ruff"
	"github.com/spf13/cobra"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"
)

// errFindings makes the process exit 1 without printing an error.
var errFindings = errors.New("problems found")

// fileResult is the outcome of checking one file.
type fileResult struct {
	path        string
	diagnostics []protocol.Diagnostic
	err         error
}

// runCheck lints files once, the way the server would on open.
func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	logger := a.logger.Slog()

	root := checkRoot
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
	}
	if root, err = filepath.Abs(root); err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	runner := ruff.NewRunner(ruff.WithLogger(logger))
	resolver := ruff.NewResolver(root,
		ruff.WithResolverLogger(logger),
		ruff.WithDefaults(a.defaults),
	)

	results, err := checkFiles(ctx, runner, resolver, args, checkJobs, logger)
	if err != nil {
		return err
	}

	summary := printResults(ux.NewPrinter(cmd.OutOrStdout(), machineOutput), root, results)
	if !summary.Clean() {
		return errFindings
	}
	return nil
}

// printResults prints every result and the summary line. Files that
// could not be checked count as failed.
func printResults(printer *ux.Printer, root string, results []fileResult) ux.Summary {
	summary := ux.Summary{Files: len(results)}
	for _, r := range results {
		display := displayPath(root, r.path)
		if r.err != nil {
			summary.Failed++
			printer.FileError(display, r.err)
			continue
		}
		for _, d := range r.diagnostics {
			summary.Add(d)
			printer.Diagnostic(display, d)
		}
	}
	printer.Summary(summary)
	return summary
}

// checkFiles lints paths concurrently, at most jobs at a time.
//
// Description:
//
//	Results keep the order of paths. A file that cannot be read, or a
//	ruff run that fails or prints something other than findings, is
//	reported on that file's result; only context cancellation fails the
//	whole call.
func checkFiles(ctx context.Context, runner *ruff.Runner, resolver *ruff.Resolver, paths []string, jobs int, logger *slog.Logger) ([]fileResult, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(ctx, runner, resolver, p, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkFile(ctx context.Context, runner *ruff.Runner, resolver *ruff.Resolver, path string, logger *slog.Logger) fileResult {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return fileResult{path: abs, err: err}
	}

	resolved, err := resolver.Resolve(abs)
	if errors.Is(err, ruff.ErrConfigNotFound) {
		logger.Warn("Configured ruff config does not exist, ignoring it",
			slog.String("error", err.Error()),
		)
	}
	if !resolved.Settings.IsEnabled() {
		return fileResult{path: abs, diagnostics: []protocol.Diagnostic{}}
	}

	findings, err := runner.Check(ctx, abs, source, resolved.Settings)
	if err != nil {
		return fileResult{path: abs, err: err}
	}
	return fileResult{
		path:        abs,
		diagnostics: ruff.Diagnostics(findings, resolved.Settings.Severities),
	}
}

// displayPath shortens paths under root to relative form.
func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
