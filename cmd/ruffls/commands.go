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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	logLevel       string
	logDir         string
	logJSON        bool
	settingsFile   string
	traceExporter  string
	metricExporter string
	metricsPort    int

	checkRoot     string
	checkJobs     int
	machineOutput bool

	rootCmd = &cobra.Command{
		Use:   "ruffls",
		Short: "A language server bridging editors to the Ruff linter and formatter",
		Long: `ruffls runs Ruff on open Python documents and reports diagnostics,
code actions and formatting over the Language Server Protocol.

Without a subcommand it serves LSP on stdin/stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe, // Defined in cmd_serve.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve LSP on stdin/stdout (the default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	checkCmd = &cobra.Command{
		Use:   "check FILE...",
		Short: "Lint files once and print the diagnostics the server would publish",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck, // Defined in cmd_check.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the ruffls version",
		Args:  cobra.NoArgs,
		Run:   runVersion,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "Minimum log level: debug, info, warn, error")
	flags.StringVar(&logDir, "log-dir", "", "Also write JSON logs to a daily file in this directory")
	flags.BoolVar(&logJSON, "log-json", false, "Log JSON to stderr (default: when stderr is not a terminal)")
	flags.StringVar(&settingsFile, "settings", "", "YAML file with default ruff plugin settings")
	flags.StringVar(&traceExporter, "trace-exporter", "", "Trace exporter: otlp, stdout, none (default: $OTEL_TRACES_EXPORTER or none)")
	flags.StringVar(&metricExporter, "metric-exporter", "", "Metric exporter: prometheus, stdout, none (default: $OTEL_METRICS_EXPORTER or none)")
	flags.IntVar(&metricsPort, "metrics-port", 9464, "Port for /metrics when the prometheus exporter is on")

	checkCmd.Flags().StringVar(&checkRoot, "root", "", "Workspace root for config discovery (default: current directory)")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 4, "Files checked concurrently")
	checkCmd.Flags().BoolVar(&machineOutput, "machine", false, "Tab-separated output for scripts")

	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
}
