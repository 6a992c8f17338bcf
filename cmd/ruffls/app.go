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

	"github.com/AleutianAI/ruffls/pkg/logging"
	"github.com/AleutianAI/ruffls/services/lsp"
	"github.com/AleutianAI/ruffls/services/ruff"
	"github.com/AleutianAI/ruffls/services/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// app holds what every command sets up from the global flags.
type app struct {
	logger    *logging.Logger
	clientLog *lsp.ClientLogExporter
	defaults  ruff.Settings

	shutdownTelemetry func(context.Context) error
}

// newApp builds logging, default settings and telemetry.
//
// With forwardLogs set, warnings and errors are also sent to the editor
// once a server is attached to app.clientLog.
func newApp(ctx context.Context, cmd *cobra.Command, forwardLogs bool) (*app, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	useJSON := logJSON
	if !cmd.Flags().Changed("log-json") {
		useJSON = logging.PreferJSON(os.Stderr)
	}

	a := &app{}
	cfg := logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "ruffls",
		JSON:    useJSON,
	}
	if forwardLogs {
		a.clientLog = lsp.NewClientLogExporter(logging.LevelWarn)
		cfg.Exporter = a.clientLog
	}
	a.logger = logging.New(cfg)

	if settingsFile != "" {
		s, err := ruff.LoadSettingsFile(settingsFile)
		if err != nil {
			_ = a.logger.Close()
			return nil, fmt.Errorf("load settings: %w", err)
		}
		a.defaults = s
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	if traceExporter != "" {
		tcfg.TraceExporter = traceExporter
	}
	if metricExporter != "" {
		tcfg.MetricExporter = metricExporter
	}
	a.shutdownTelemetry, err = telemetry.Init(ctx, tcfg)
	if err != nil {
		_ = a.logger.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if tcfg.MetricExporter == "prometheus" {
		go a.serveMetrics(ctx)
	}
	return a, nil
}

func (a *app) serveMetrics(ctx context.Context) {
	logger := a.logger.Slog()
	if err := telemetry.ServeMetrics(ctx, metricsPort, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Metrics endpoint failed", slog.String("error", err.Error()))
	}
}

// Close flushes telemetry, then closes the logger.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if a.shutdownTelemetry != nil {
		errs = multierr.Append(errs, a.shutdownTelemetry(ctx))
	}
	return multierr.Append(errs, a.logger.Close())
}
