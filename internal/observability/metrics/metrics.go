package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	billingEvents  metric.Int64Counter
	automationRuns metric.Int64Counter
	pointsMoved    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
	if cfg.ExporterEndpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.ExporterEndpoint))
	}
	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})

	log.Info("metrics initialized", zap.String("endpoint", cfg.ExporterEndpoint))
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "skylearn-billing"
	}
	meter := provider.Meter(name)

	billingEvents, err := meter.Int64Counter("skylearn_billing_events_total")
	if err != nil {
		return nil, err
	}
	automationRuns, err := meter.Int64Counter("skylearn_automation_runs_total")
	if err != nil {
		return nil, err
	}
	pointsMoved, err := meter.Int64Counter("skylearn_loyalty_points_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billingEvents:  billingEvents,
		automationRuns: automationRuns,
		pointsMoved:    pointsMoved,
	}, nil
}

// RecordBillingEvent counts published domain events by kind.
func (m *Metrics) RecordBillingEvent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(kind)))
	m.billingEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAutomationRun counts rule executions by aggregate status.
func (m *Metrics) RecordAutomationRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.automationRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPointsMoved counts loyalty ledger movement by direction.
func (m *Metrics) RecordPointsMoved(ctx context.Context, direction string, points int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("direction", strings.TrimSpace(direction)))
	m.pointsMoved.Add(ctx, int64(points), metric.WithAttributes(attrs...))
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"event_type":  {},
	"status":      {},
	"status_code": {},
	"direction":   {},
	"endpoint":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
