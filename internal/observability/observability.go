// Package observability configures the process-global logger.
//
// All application code logs through log/slog. Instrument installs the default
// handler once at startup: plain text or JSON handlers writing to stderr for
// local use, or an OpenTelemetry log pipeline (slog bridge, severity
// filtering, stdout or OTLP export) when the otel format is selected.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies this process in exported log records.
const instrumentationName = "geminine"

// Instrument configures the global slog default for the given minimum level
// and output format (text, json, or otel).
func Instrument(level slog.Level, format string) error {
	handler, err := newHandler(level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newHandler(level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "otel":
		provider, err := newLoggerProvider(context.Background(), level)
		if err != nil {
			return nil, fmt.Errorf("building otel log pipeline: %w", err)
		}
		return otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// newLoggerProvider assembles the otel log pipeline: exporter (OTLP when an
// endpoint is configured through the standard OTEL_EXPORTER_OTLP_* variables,
// stdout otherwise), batching, and minimum-severity filtering.
func newLoggerProvider(ctx context.Context, level slog.Level) (*sdklog.LoggerProvider, error) {
	exporter, err := newExporter(ctx)
	if err != nil {
		return nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(processor)), nil
}

func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return stdoutlog.New()
	}

	// Endpoint and TLS settings are picked up by the exporters from the
	// OTEL_EXPORTER_OTLP_* environment themselves.
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		return otlploggrpc.New(ctx)
	}
	return otlploghttp.New(ctx)
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
