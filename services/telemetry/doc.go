// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry-based observability for ruffls.
//
// This package initializes the OTel SDK for tracing and metrics. Packages
// instrument themselves with otel.Tracer and otel.Meter directly; Init only
// decides where the data goes.
//
// # Standard Output Is Reserved
//
// The language server speaks JSON-RPC on stdout. The "stdout" exporters
// therefore write to stderr unless Config.Writer says otherwise.
//
// # Backends
//
// Tracing and metrics are off by default. Traces can go to any OTLP
// receiver (Jaeger 1.35+ accepts OTLP natively). Metrics can be scraped
// from a Prometheus /metrics endpoint started with ServeMetrics.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.MetricExporter = "prometheus"
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: none)
//   - RUFFLS_ENV: environment name (default: development)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init() returns.
package telemetry
