package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records evaluation and HTTP metrics. Use
// [NewMetricsRecorder] for real OTel metrics or [NoopMetrics] when
// metrics are disabled.
type MetricsRecorder interface {
	// RecordEvaluation records one rule.Evaluate call.
	RecordEvaluation(ctx context.Context, ruleName string, duration time.Duration, err error)

	// RecordBucketDecision records one bucket.Decide outcome.
	RecordBucketDecision(ctx context.Context, ruleName string, decision bool)

	// RecordHTTPRequest records one HTTP request/response cycle.
	RecordHTTPRequest(ctx context.Context, route string, status int, duration time.Duration)
}

type otelMetrics struct {
	evaluations metric.Int64Counter
	evalLatency metric.Float64Histogram
	evalErrors  metric.Int64Counter
	decisions   metric.Int64Counter
	httpReqs    metric.Int64Counter
	httpLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})

	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("rollout")

	evaluations, err := meter.Int64Counter("rollout.evaluations",
		metric.WithDescription("Number of formula evaluations"))
	if err != nil {
		return nil, err
	}

	evalLatency, err := meter.Float64Histogram("rollout.evaluation.latency_ms",
		metric.WithDescription("Formula evaluation latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	evalErrors, err := meter.Int64Counter("rollout.evaluation.errors",
		metric.WithDescription("Number of failed formula evaluations"))
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter("rollout.bucket.decisions",
		metric.WithDescription("Number of bucket decisions, labeled by outcome"))
	if err != nil {
		return nil, err
	}

	httpReqs, err := meter.Int64Counter("rollout.http.requests",
		metric.WithDescription("Number of HTTP requests, labeled by route and status"))
	if err != nil {
		return nil, err
	}

	httpLatency, err := meter.Float64Histogram("rollout.http.latency_ms",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		evaluations: evaluations,
		evalLatency: evalLatency,
		evalErrors:  evalErrors,
		decisions:   decisions,
		httpReqs:    httpReqs,
		httpLatency: httpLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global
// OTel meter provider, lazily initializing its instruments on first
// use. If instrument creation fails (a misconfigured provider), every
// method silently does nothing rather than panicking mid-request.
func NewMetricsRecorder() MetricsRecorder {
	return realMetrics{}
}

type realMetrics struct{}

// Compile-time interface checks.
var (
	_ MetricsRecorder = realMetrics{}
	_ MetricsRecorder = NoopMetrics{}
)

func (realMetrics) RecordEvaluation(
	ctx context.Context,
	ruleName string,
	duration time.Duration,
	err error,
) {
	m, initErr := getDefaultMetrics()
	if initErr != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("rule.name", ruleName))

	m.evaluations.Add(ctx, 1, attrs)
	m.evalLatency.Record(ctx, float64(duration.Milliseconds()), attrs)

	if err != nil {
		m.evalErrors.Add(ctx, 1, attrs)
	}
}

func (realMetrics) RecordBucketDecision(ctx context.Context, ruleName string, decision bool) {
	m, err := getDefaultMetrics()
	if err != nil {
		return
	}

	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule.name", ruleName),
		attribute.Bool("decision", decision),
	))
}

func (realMetrics) RecordHTTPRequest(
	ctx context.Context,
	route string,
	status int,
	duration time.Duration,
) {
	m, err := getDefaultMetrics()
	if err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	m.httpReqs.Add(ctx, 1, attrs)
	m.httpLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) RecordEvaluation(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordBucketDecision(context.Context, string, bool)             {}
func (NoopMetrics) RecordHTTPRequest(context.Context, string, int, time.Duration)  {}
