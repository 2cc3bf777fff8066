// Package tracing wires OpenTelemetry spans around remote calls.
package tracing

import (
	"context"
	"io"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rbramwell/halin"

var enabled atomic.Bool

// Setup configures a global tracer provider exporting to w when enable is
// true. It returns a shutdown function which should be deferred.
func Setup(enable bool, w io.Writer) (func(context.Context) error, error) {
	enabled.Store(enable)
	if !enable {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Enabled reports whether spans are being recorded.
func Enabled() bool { return enabled.Load() }

// Span is a started span; End records err (if any) and closes it.
type Span struct {
	span trace.Span
}

// StartSpan starts a span if tracing is enabled. Attributes are given as
// key/value string pairs.
func StartSpan(ctx context.Context, name string, kv ...string) (context.Context, Span) {
	if !enabled.Load() {
		return ctx, Span{}
	}
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, Span{span: span}
}

// End finishes the span, marking it failed when err is non-nil.
func (s Span) End(err error) {
	if s.span == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
