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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/ruffls/services/lsp"
	"github.com/AleutianAI/ruffls/services/ruff"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// runServe serves LSP on stdio until the client exits or a signal arrives.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	logger := a.logger.Slog()

	registry := lsp.NewRegistry(logger)
	server := lsp.NewServer(registry,
		lsp.WithLogger(logger),
		lsp.WithServerInfo("ruffls", version),
	)
	a.clientLog.Attach(server)

	plugin := ruff.NewPlugin(
		ruff.WithNotifier(server),
		ruff.WithPluginLogger(logger.With(slog.String("plugin", ruff.PluginName))),
		ruff.WithSettingsDefaults(a.defaults),
		ruff.WithConfigWatch(true),
	)
	if err := registry.Register(plugin); err != nil {
		return fmt.Errorf("register ruff plugin: %w", err)
	}
	plugin.Start(ctx)
	defer plugin.Close()

	logger.Info("Starting ruffls",
		slog.String("version", version),
		slog.String("commit", commit),
	)
	if err := server.Serve(ctx, lsp.Stdio()); err != nil {
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			logger.Warn("Client exited without shutdown")
			return err
		}
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("Shutting down ruffls")
	return nil
}

func runVersion(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "ruffls %s (commit %s)\n", version, commit)
}
