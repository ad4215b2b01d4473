package observ

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every orlint span.
const TracerName = "orlint"

// Tracer returns the tracer from the global provider. Without SetupTracing
// that is the otel no-op provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// SetupTracing installs an SDK tracer provider whose spans are written to
// logger at debug level. The returned function flushes and uninstalls it.
func SetupTracing(logger *log.Logger) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&logExporter{logger: logger}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return func(ctx context.Context) error {
		otel.SetTracerProvider(prev)
		return tp.Shutdown(ctx)
	}
}

// logExporter is a SpanExporter that logs finished spans.
type logExporter struct {
	logger *log.Logger
}

func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		kv := []any{
			"span", s.Name(),
			"dur", s.EndTime().Sub(s.StartTime()).Round(time.Microsecond),
			"trace", s.SpanContext().TraceID().String(),
		}
		for _, a := range s.Attributes() {
			kv = append(kv, string(a.Key), attrValue(a.Value))
		}
		if st := s.Status(); st.Description != "" {
			kv = append(kv, "status", st.Description)
		}
		e.logger.Debug("trace", kv...)
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error { return nil }

func attrValue(v attribute.Value) any {
	switch v.Type() {
	case attribute.BOOL:
		return v.AsBool()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	default:
		return v.Emit()
	}
}
