// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"
	cfg.Writer = io.Discard
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	cfg := DefaultConfig()

	if cfg.ServiceName != "ruffls" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "ruffls")
	}
	if cfg.TraceExporter != "none" {
		t.Errorf("TraceExporter = %q, want %q", cfg.TraceExporter, "none")
	}
	if cfg.MetricExporter != "none" {
		t.Errorf("MetricExporter = %q, want %q", cfg.MetricExporter, "none")
	}
	if cfg.OTLPEndpoint != "localhost:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.OTLPEndpoint, "localhost:4317")
	}
	if cfg.Writer == nil {
		t.Error("Writer should default to stderr")
	}
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("RUFFLS_ENV", "ci")
	cfg := DefaultConfig()

	if cfg.TraceExporter != "stdout" {
		t.Errorf("TraceExporter = %q, want %q", cfg.TraceExporter, "stdout")
	}
	if cfg.Environment != "ci" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "ci")
	}
}

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, quietConfig()) //nolint:staticcheck
	if err != ErrNilContext {
		t.Errorf("Init(nil, cfg) error = %v, want %v", err, ErrNilContext)
	}
}

func TestInit_NoopExporter(t *testing.T) {
	shutdown, err := Init(context.Background(), quietConfig())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInit_StdoutExporterWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := quietConfig()
	cfg.TraceExporter = "stdout"
	cfg.Writer = &buf

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "exported-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "exported-span") {
		t.Errorf("writer should receive the span, got: %s", buf.String())
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := quietConfig()
	cfg.TraceExporter = "unknown_exporter"

	_, err := Init(context.Background(), cfg)
	if err == nil {
		t.Fatal("Init() with unknown exporter should fail")
	}
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("error = %v, want ErrUnknownExporter", err)
	}
	if !strings.Contains(err.Error(), "unknown exporter type") {
		t.Errorf("error = %v, want to contain 'unknown exporter type'", err)
	}
}

func TestInit_UnknownMetricExporter(t *testing.T) {
	cfg := quietConfig()
	cfg.MetricExporter = "unknown_metric_exporter"

	_, err := Init(context.Background(), cfg)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("error = %v, want ErrUnknownExporter", err)
	}
}

func TestInit_StdoutMetricExporter(t *testing.T) {
	cfg := quietConfig()
	cfg.MetricExporter = "stdout"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	if otel.Meter("test") == nil {
		t.Error("meter is nil")
	}
}

func TestGetEnvOr(t *testing.T) {
	t.Run("returns fallback when env not set", func(t *testing.T) {
		result := getEnvOr("RUFFLS_TEST_NONEXISTENT_VAR_12345", "fallback")
		if result != "fallback" {
			t.Errorf("getEnvOr() = %q, want %q", result, "fallback")
		}
	})

	t.Run("returns env value when set", func(t *testing.T) {
		t.Setenv("RUFFLS_TEST_VAR", "custom_value")
		result := getEnvOr("RUFFLS_TEST_VAR", "fallback")
		if result != "custom_value" {
			t.Errorf("getEnvOr() = %q, want %q", result, "custom_value")
		}
	})
}

func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	cfg := quietConfig()
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	counter, err := otel.Meter("test_metrics").Int64Counter("ruffls_test_requests_total")
	if err != nil {
		t.Fatalf("creating counter: %v", err)
	}
	counter.Add(context.Background(), 42)

	handler := MetricsHandler()
	if handler == nil {
		t.Fatal("MetricsHandler() returned nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	output := string(body)
	if !strings.Contains(output, "# HELP") && !strings.Contains(output, "# TYPE") {
		t.Errorf("output should be Prometheus format: %s", output[:min(200, len(output))])
	}
}

func withoutMetricsHandler(t *testing.T) {
	t.Helper()
	prometheusHandlerMu.Lock()
	old := prometheusHandler
	prometheusHandler = nil
	prometheusHandlerMu.Unlock()

	t.Cleanup(func() {
		prometheusHandlerMu.Lock()
		prometheusHandler = old
		prometheusHandlerMu.Unlock()
	})
}

func TestMetricsHandler_NilBeforeInit(t *testing.T) {
	withoutMetricsHandler(t)

	if MetricsHandler() != nil {
		t.Error("MetricsHandler() should return nil before Prometheus init")
	}
}

func TestServeMetrics_Disabled(t *testing.T) {
	withoutMetricsHandler(t)

	err := ServeMetrics(context.Background(), 0, nil)
	if !errors.Is(err, ErrMetricsDisabled) {
		t.Errorf("ServeMetrics() error = %v, want ErrMetricsDisabled", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServeMetrics_ServesAndStops(t *testing.T) {
	withoutMetricsHandler(t)
	prometheusHandlerMu.Lock()
	prometheusHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# TYPE up gauge\nup 1\n")
	})
	prometheusHandlerMu.Unlock()

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() { done <- ServeMetrics(ctx, port, logger) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/metrics"
	var (
		resp *http.Response
		err  error
	)
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("GET %s: %v", url, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "up 1") {
		t.Errorf("body = %q, want metrics", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeMetrics() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeMetrics did not stop after cancel")
	}
}

func TestLoggerWithTrace_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LoggerWithTrace(context.Background(), logger).Info("test message")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("output should not contain trace_id when no span: %s", buf.String())
	}
}

func TestLoggerWithTrace_NilContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LoggerWithTrace(nil, logger).Info("test message") //nolint:staticcheck

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("output should contain message: %s", buf.String())
	}
}

func TestLoggerWithTrace_NilLogger(t *testing.T) {
	if LoggerWithTrace(context.Background(), nil) == nil {
		t.Error("result should not be nil")
	}
}

func TestLoggerWithTrace_WithSpan(t *testing.T) {
	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	LoggerWithTrace(ctx, logger).Info("test message")

	output := buf.String()
	if !strings.Contains(output, traceID.String()) {
		t.Errorf("output should contain actual trace ID: %s", output)
	}
	if !strings.Contains(output, spanID.String()) {
		t.Errorf("output should contain actual span ID: %s", output)
	}
}
