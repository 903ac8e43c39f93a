// Package telemetry wraps OpenTelemetry tracing and metrics for the
// evaluator and HTTP layers behind two small interfaces, SpanManager
// and MetricsRecorder, each with a real implementation backed by the
// global OTel providers and a Noop implementation used when no
// provider has been configured. Callers that never call
// otel.SetTracerProvider/otel.SetMeterProvider pay no tracing or
// metrics overhead.
package telemetry
