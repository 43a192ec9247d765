package observability

import (
	"context"

	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability/metrics"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
	),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(registerEventMetrics),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

func registerEventMetrics(m *metrics.Metrics, dispatcher *events.Dispatcher) {
	dispatcher.Subscribe(events.SinkFunc(func(ctx context.Context, kind events.Kind, payload events.Payload) {
		m.RecordBillingEvent(ctx, string(kind))

		switch kind {
		case events.PointsAwarded:
			m.RecordPointsMoved(ctx, "earn", payloadPoints(payload))
		case events.PointsDeducted:
			m.RecordPointsMoved(ctx, "spend", payloadPoints(payload))
		}
	}))
}

func payloadPoints(payload events.Payload) int {
	switch v := payload["points"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
