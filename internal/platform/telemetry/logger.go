// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the optional log file.
const (
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

func initLoggerProvider(ctx context.Context, conn *grpc.ClientConn, res *resource.Resource, serviceName string) (*sdklog.LoggerProvider, slog.Handler, error) {
	exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: failed to create log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	global.SetLoggerProvider(lp)

	return lp, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)), nil
}

// LogOptions configures [NewLogger].
type LogOptions struct {
	Level slog.Level
	// FilePath adds a size-rotated JSON log file when set.
	FilePath string
	// Bridge receives a copy of every record, typically [Providers.LogHandler].
	Bridge slog.Handler
}

// NewLogger builds the process logger: JSON to output, optionally to a
// rotated file and to the OpenTelemetry bridge.
//
// The returned closer releases the log file.
func NewLogger(output io.Writer, options LogOptions) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}

	if options.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   options.FilePath,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		}
		output = io.MultiWriter(output, file)
		closer = file
	}

	var handler slog.Handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: options.Level})
	if options.Bridge != nil {
		handler = fanout{handler, leveled{Handler: options.Bridge, level: options.Level}}
	}

	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends every record to all of its handlers.
type fanout []slog.Handler

func (handlers fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (handlers fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(handlers))
	for i, handler := range handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (handlers fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(handlers))
	for i, handler := range handlers {
		next[i] = handler.WithGroup(name)
	}
	return next
}

// leveled applies a minimum level to a handler that has none of its own.
type leveled struct {
	slog.Handler
	level slog.Level
}

func (handler leveled) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= handler.level && handler.Handler.Enabled(ctx, level)
}

func (handler leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return leveled{Handler: handler.Handler.WithAttrs(attrs), level: handler.level}
}

func (handler leveled) WithGroup(name string) slog.Handler {
	return leveled{Handler: handler.Handler.WithGroup(name), level: handler.level}
}
