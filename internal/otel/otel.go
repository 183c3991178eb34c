// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel initializes the global OTel SDK state from config.
package otel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidsoendoro/go-lambda-api/concurrent"
	"github.com/davidsoendoro/go-lambda-api/config"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/sdk"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// UnknownOTLPConnTypeError is returned when an exporter config names
// a transport other than "grpc" or "http".
type UnknownOTLPConnTypeError struct {
	Type config.OTLPConnType
}

func (e UnknownOTLPConnTypeError) Error() string {
	return fmt.Sprintf("unknown otlp conn type: %q", e.Type)
}

// Initialize configures the global trace, metric and log providers.
// A signal whose OTLP target is empty is left on its default (noop)
// provider.
func Initialize(ctx context.Context, cfg config.OTel) error {
	r, err := detectResource(ctx, cfg.Resource)
	if err != nil {
		return err
	}

	grpcCache := concurrent.NewCache[string, *grpc.ClientConn]()

	err = initTracing(ctx, cfg.Trace, r, grpcCache)
	if err != nil {
		return err
	}

	err = initMetrics(ctx, cfg.Metric, r, grpcCache)
	if err != nil {
		return err
	}

	return initLogging(ctx, cfg.Log, r, grpcCache)
}

// detectResource builds the resource attached to every signal:
// telemetry SDK info, host name, and the configured service identity.
// An empty service name falls back to the conventional
// "unknown_service:<executable>" value.
func detectResource(ctx context.Context, cfg config.Resource) (*resource.Resource, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = fallbackServiceName()
	}

	return resource.Detect(
		ctx,
		telemetrySDKDetector{},
		resource.StringDetector(semconv.SchemaURL, semconv.HostNameKey, os.Hostname),
		resource.StringDetector(semconv.SchemaURL, semconv.ServiceNameKey, func() (string, error) {
			return serviceName, nil
		}),
		resource.StringDetector(semconv.SchemaURL, semconv.ServiceVersionKey, func() (string, error) {
			return cfg.ServiceVersion, nil
		}),
	)
}

func fallbackServiceName() string {
	executable, err := os.Executable()
	if err != nil {
		return "unknown_service:go"
	}
	return "unknown_service:" + filepath.Base(executable)
}

type telemetrySDKDetector struct{}

func (telemetrySDKDetector) Detect(context.Context) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.TelemetrySDKName("opentelemetry"),
		semconv.TelemetrySDKLanguageGo,
		semconv.TelemetrySDKVersion(sdk.Version()),
	), nil
}

func getOrNewClientConn(cfg config.OTLP, cache *concurrent.Cache[string, *grpc.ClientConn]) (*grpc.ClientConn, error) {
	return cache.GetOr(cfg.Target, func() (*grpc.ClientConn, error) {
		return grpc.NewClient(
			cfg.Target,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	})
}

func initTracing(ctx context.Context, cfg config.Trace, r *resource.Resource, grpcCache *concurrent.Cache[string, *grpc.ClientConn]) error {
	if cfg.Exporter.OTLP.Target == "" {
		return nil
	}

	var exp sdktrace.SpanExporter
	var err error
	switch cfg.Exporter.OTLP.Type {
	case config.OTLPGRPC:
		cc, ccErr := getOrNewClientConn(cfg.Exporter.OTLP, grpcCache)
		if ccErr != nil {
			return ccErr
		}
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Exporter.OTLP.Target))
	default:
		return UnknownOTLPConnTypeError{Type: cfg.Exporter.OTLP.Type}
	}
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(
			exp,
			sdktrace.WithBatchTimeout(cfg.Processor.Batch.ExportInterval),
		),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Sampling.Ratio)),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	return nil
}

func initMetrics(ctx context.Context, cfg config.Metric, r *resource.Resource, grpcCache *concurrent.Cache[string, *grpc.ClientConn]) error {
	if cfg.Exporter.OTLP.Target == "" {
		return nil
	}

	var exp sdkmetric.Exporter
	var err error
	switch cfg.Exporter.OTLP.Type {
	case config.OTLPGRPC:
		cc, ccErr := getOrNewClientConn(cfg.Exporter.OTLP, grpcCache)
		if ccErr != nil {
			return ccErr
		}
		exp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		exp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Exporter.OTLP.Target))
	default:
		return UnknownOTLPConnTypeError{Type: cfg.Exporter.OTLP.Type}
	}
	if err != nil {
		return err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			exp,
			sdkmetric.WithInterval(cfg.Reader.Periodic.ExportInterval),
		)),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(mp)

	return runtime.Start(runtime.WithMeterProvider(mp))
}

func initLogging(ctx context.Context, cfg config.Log, r *resource.Resource, grpcCache *concurrent.Cache[string, *grpc.ClientConn]) error {
	if cfg.Exporter.OTLP.Target == "" {
		return nil
	}

	var exp sdklog.Exporter
	var err error
	switch cfg.Exporter.OTLP.Type {
	case config.OTLPGRPC:
		cc, ccErr := getOrNewClientConn(cfg.Exporter.OTLP, grpcCache)
		if ccErr != nil {
			return ccErr
		}
		exp, err = otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		exp, err = otlploghttp.New(ctx, otlploghttp.WithEndpoint(cfg.Exporter.OTLP.Target))
	default:
		return UnknownOTLPConnTypeError{Type: cfg.Exporter.OTLP.Type}
	}
	if err != nil {
		return err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(
			exp,
			sdklog.WithExportInterval(cfg.Processor.Batch.ExportInterval),
		)),
		sdklog.WithResource(r),
	)
	global.SetLoggerProvider(lp)
	return nil
}
