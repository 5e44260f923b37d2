// Package observability настраивает трассировку OpenTelemetry для правок.
package observability

import (
	"context"
	"time"

	"github.com/annel0/worldedit/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName имя трассировщика правок
const TracerName = "github.com/annel0/worldedit"

// Options параметры экспорта
type Options struct {
	ServiceName string
	// Endpoint host:port OTLP/HTTP коллектора; пусто = localhost:4318
	Endpoint string
	Insecure bool
}

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var expOpts []otlptracehttp.Option
	if opts.Endpoint != "" {
		expOpts = append(expOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
	}
	if opts.Insecure {
		expOpts = append(expOpts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, expOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s)", endpointOrDefault(opts.Endpoint), opts.ServiceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

func endpointOrDefault(ep string) string {
	if ep == "" {
		return "localhost:4318"
	}
	return ep
}

// Tracer трассировщик из глобального провайдера. Без InitTelemetry спаны не экспортируются.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartOperation открывает спан выполнения правки
func StartOperation(ctx context.Context, kind, name, actor string, estimated uint64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "edit."+kind,
		trace.WithAttributes(
			attribute.String("edit.name", name),
			attribute.String("edit.actor", actor),
			attribute.Int64("edit.estimated_cells", int64(estimated)),
		),
	)
}

// EndOperation закрывает спан с результатом правки
func EndOperation(span trace.Span, changed int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("edit.changed_cells", changed))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
