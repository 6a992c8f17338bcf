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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for ruff operations.
var (
	tracer = otel.Tracer("ruffls.ruff")
	meter  = otel.Meter("ruffls.ruff")
)

// Metrics for ruff operations.
var (
	runLatency    metric.Float64Histogram
	runTotal      metric.Int64Counter
	findingsFound metric.Int64Histogram
	actionsBuilt  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"ruff_run_duration_seconds",
			metric.WithDescription("Duration of ruff subprocess runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"ruff_run_total",
			metric.WithDescription("Total number of ruff subprocess runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		findingsFound, err = meter.Int64Histogram(
			"ruff_findings_found",
			metric.WithDescription("Number of findings per lint request"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		actionsBuilt, err = meter.Int64Counter(
			"ruff_code_actions_total",
			metric.WithDescription("Total number of code actions offered"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates a span for a ruff subprocess run.
func startRunSpan(ctx context.Context, sub Subcommand, documentPath, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("ruff.subcommand", sub.String()),
			attribute.String("ruff.document_path", documentPath),
			attribute.String("ruff.run_id", runID),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, exitCode, stdoutBytes int) {
	span.SetAttributes(
		attribute.Int("ruff.exit_code", exitCode),
		attribute.Int("ruff.stdout_bytes", stdoutBytes),
	)
}

// recordRunMetrics records metrics for one subprocess run.
func recordRunMetrics(ctx context.Context, sub Subcommand, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("subcommand", sub.String()),
		attribute.Bool("success", success),
	)
	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
}

// recordFindings records how many findings a lint request produced.
func recordFindings(ctx context.Context, count int) {
	if err := initMetrics(); err != nil {
		return
	}
	findingsFound.Record(ctx, int64(count))
}

// recordActions records offered code actions by kind.
func recordActions(ctx context.Context, kind string, count int) {
	if err := initMetrics(); err != nil || count == 0 {
		return
	}
	actionsBuilt.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}
