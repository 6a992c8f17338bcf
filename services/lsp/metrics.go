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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("ruffls.lsp")
	meter  = otel.Meter("ruffls.lsp")
)

var (
	requestLatency   metric.Float64Histogram
	requestTotal     metric.Int64Counter
	diagnosticsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestLatency, err = meter.Float64Histogram(
			"lsp_request_duration_seconds",
			metric.WithDescription("Duration of handled LSP messages"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestTotal, err = meter.Int64Counter(
			"lsp_request_total",
			metric.WithDescription("Total number of handled LSP messages"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsTotal, err = meter.Int64Counter(
			"lsp_diagnostics_published_total",
			metric.WithDescription("Total number of published diagnostics"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRequestSpan creates a span for one incoming message.
func startRequestSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Server.Handle",
		trace.WithAttributes(attribute.String("lsp.method", method)),
	)
}

func recordRequestMetrics(ctx context.Context, method string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", success),
	)
	requestLatency.Record(ctx, duration.Seconds(), attrs)
	requestTotal.Add(ctx, 1, attrs)
}

func recordPublished(ctx context.Context, count int) {
	if err := initMetrics(); err != nil {
		return
	}
	diagnosticsTotal.Add(ctx, int64(count))
}
