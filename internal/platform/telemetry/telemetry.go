// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package telemetry wires OpenTelemetry traces, metrics and logs to an OTLP
collector over a single gRPC connection.

When no collector endpoint is configured, [Setup] returns a [Providers] value
whose Shutdown is a no-op and the global OpenTelemetry providers stay the
built-in no-op ones. Structured logging to stdout works either way.
*/
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config selects the collector and describes the service.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
}

// Providers holds the SDK providers created by [Setup].
//
// LogHandler is nil when export is disabled.
type Providers struct {
	Tracer     *sdktrace.TracerProvider
	Meter      *sdkmetric.MeterProvider
	Logger     *sdklog.LoggerProvider
	LogHandler slog.Handler

	conn *grpc.ClientConn
}

// Enabled reports whether telemetry is exported.
func (providers *Providers) Enabled() bool {
	return providers.conn != nil
}

// Setup initializes the tracer, meter and logger providers and installs them globally.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	if cfg.OTLPEndpoint == "" {
		return &Providers{}, nil
	}

	conn, err := grpc.NewClient(cfg.OTLPEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create gRPC connection: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	providers := &Providers{conn: conn}

	if providers.Tracer, err = initTracerProvider(ctx, conn, res); err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}
	if providers.Meter, err = initMeterProvider(ctx, conn, res); err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}
	if providers.Logger, providers.LogHandler, err = initLoggerProvider(ctx, conn, res, cfg.ServiceName); err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}

	return providers, nil
}

// Shutdown flushes and stops every provider, then closes the connection.
func (providers *Providers) Shutdown(ctx context.Context) error {
	var errs []error

	if providers.Logger != nil {
		errs = append(errs, providers.Logger.Shutdown(ctx))
	}
	if providers.Meter != nil {
		errs = append(errs, providers.Meter.Shutdown(ctx))
	}
	if providers.Tracer != nil {
		errs = append(errs, providers.Tracer.Shutdown(ctx))
	}
	if providers.conn != nil {
		errs = append(errs, providers.conn.Close())
	}

	return errors.Join(errs...)
}

func newResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create resource: %w", err)
	}
	return res, nil
}
