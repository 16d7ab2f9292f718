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

	"github.com/kbukum/serviceclient/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	Interval       time.Duration `mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for local development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
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
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric instrument names.
const (
	MetricRequestTotal       = "serviceclient.request.total"
	MetricRequestDuration    = "serviceclient.request.duration"
	MetricRegistryFetchTotal = "serviceclient.registry.fetch.total"
	MetricCacheInvalidations = "serviceclient.cache.invalidations"
)

// Metrics holds the client's metric instruments.
type Metrics struct {
	requestTotal       metric.Int64Counter
	requestDuration    metric.Float64Histogram
	registryFetchTotal metric.Int64Counter
	cacheInvalidations metric.Int64Counter
}

// NewMetrics creates the client instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter(MetricRequestTotal,
		metric.WithDescription("Requests dispatched to resolved services"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequestTotal, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of dispatched requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	registryFetchTotal, err := meter.Int64Counter(MetricRegistryFetchTotal,
		metric.WithDescription("Endpoint lookups sent to the service registry"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRegistryFetchTotal, err)
	}

	cacheInvalidations, err := meter.Int64Counter(MetricCacheInvalidations,
		metric.WithDescription("Endpoint cache invalidations caused by change notifications"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCacheInvalidations, err)
	}

	return &Metrics{
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		registryFetchTotal: registryFetchTotal,
		cacheInvalidations: cacheInvalidations,
	}, nil
}

// RecordRequest records one dispatched request. Outcome is "ok" or an error code.
func (m *Metrics) RecordRequest(ctx context.Context, service, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("method", method),
		attribute.String(AttrOutcome, outcome),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("method", method),
	))
}

// RecordRegistryFetch records one registry lookup.
func (m *Metrics) RecordRegistryFetch(ctx context.Context, service, outcome string) {
	if m == nil {
		return
	}
	m.registryFetchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordInvalidation records one cache invalidation.
func (m *Metrics) RecordInvalidation(ctx context.Context, service string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
	))
}
