package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/xform/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	// Interval is the export interval; zero keeps the SDK default.
	Interval time.Duration
}

// DefaultMeterConfig returns development defaults.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricPipelinesBuilt = "xform.pipelines.built"
	MetricUsageErrors    = "xform.usage_errors"
	MetricRowsProduced   = "xform.rows.produced"
	MetricRunDuration    = "xform.run.duration"
	MetricRequests       = "xform.http.requests"
)

// EngineMetrics holds the instruments recorded by the engine and server.
type EngineMetrics struct {
	pipelinesBuilt metric.Int64Counter
	usageErrors    metric.Int64Counter
	rowsProduced   metric.Int64Counter
	runDuration    metric.Float64Histogram
	requests       metric.Int64Counter
}

// NewEngineMetrics creates the instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	pipelinesBuilt, err := meter.Int64Counter(MetricPipelinesBuilt,
		metric.WithDescription("Pipelines compiled, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricPipelinesBuilt, err)
	}
	usageErrors, err := meter.Int64Counter(MetricUsageErrors,
		metric.WithDescription("Scripts rejected with a usage error, by argument category"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricUsageErrors, err)
	}
	rowsProduced, err := meter.Int64Counter(MetricRowsProduced,
		metric.WithDescription("Rows produced by pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRowsProduced, err)
	}
	runDuration, err := meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of pipeline runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRunDuration, err)
	}
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("HTTP API requests, by route and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	return &EngineMetrics{
		pipelinesBuilt: pipelinesBuilt,
		usageErrors:    usageErrors,
		rowsProduced:   rowsProduced,
		runDuration:    runDuration,
		requests:       requests,
	}, nil
}

// RecordBuild counts a compiled pipeline. category is the usage error
// category when the build failed on a script error, "" otherwise.
func (m *EngineMetrics) RecordBuild(ctx context.Context, err error, category string) {
	if m == nil {
		return
	}
	m.pipelinesBuilt.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status(err))))
	if err != nil && category != "" {
		m.usageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
	}
}

// RecordRun records rows produced and the run duration.
func (m *EngineMetrics) RecordRun(ctx context.Context, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status(err)))
	m.rowsProduced.Add(ctx, int64(rows), attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRequest counts an HTTP API request.
func (m *EngineMetrics) RecordRequest(ctx context.Context, route string, code int) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", code),
	))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
