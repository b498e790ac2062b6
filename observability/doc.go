// Package observability wires OpenTelemetry tracing and metrics for the
// engine and its HTTP API.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("xform"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
//	defer span.End()
//
//	metrics, err := observability.NewEngineMetrics(observability.Meter("xform"))
//	metrics.RecordRun(ctx, rows, elapsed, nil)
package observability
