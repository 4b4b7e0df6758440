// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
)

// exportInterval is how often metrics are pushed to the collector.
const exportInterval = 10 * time.Second

func initMeterProvider(ctx context.Context, conn *grpc.ClientConn, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(exportInterval),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// RegisterTodoGauge reports the number of stored todos on every collection.
//
// A failing count skips the observation instead of reporting zero.
func RegisterTodoGauge(meter metric.Meter, count func(ctx context.Context) (int, error)) error {
	_, err := meter.Int64ObservableGauge(
		"todos_total",
		metric.WithDescription("Current number of todos in the store"),
		metric.WithUnit("{todo}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			total, err := count(ctx)
			if err != nil {
				return nil
			}
			observer.Observe(int64(total))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("telemetry: failed to create todos gauge: %w", err)
	}
	return nil
}
