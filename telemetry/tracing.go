package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var tracer = otel.Tracer("rollout")

// SpanManager handles trace span lifecycle around formula evaluation
// and HTTP request handling. Use [NewSpanManager] for real OTel
// tracing or [NoopSpanManager] when tracing is disabled.
type SpanManager interface {
	// StartEvaluateSpan starts a span covering one rule.Evaluate call.
	StartEvaluateSpan(ctx context.Context, ruleName string) (context.Context, trace.Span)

	// StartHTTPSpan starts a span covering one HTTP request.
	StartHTTPSpan(ctx context.Context, method, route string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// Compile-time interface checks.
var (
	_ SpanManager = otelSpanManager{}
	_ SpanManager = NoopSpanManager{}
)

// NewSpanManager returns a SpanManager backed by the global OTel
// tracer provider. Configure the provider with otel.SetTracerProvider
// before calling this.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartEvaluateSpan(
	ctx context.Context,
	ruleName string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rollout.evaluate",
		trace.WithAttributes(attribute.String("rule.name", ruleName)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartHTTPSpan(
	ctx context.Context,
	method, route string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rollout.http."+route,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (otelSpanManager) AddSpanEvent(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var noopSpan = noop.Span{}

func (NoopSpanManager) StartEvaluateSpan(
	ctx context.Context,
	_ string,
) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) StartHTTPSpan(
	ctx context.Context,
	_, _ string,
) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
