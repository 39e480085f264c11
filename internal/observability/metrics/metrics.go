package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
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
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	graduations       metric.Int64Counter
	downgrades        metric.Int64Counter
	downgradeFailures metric.Int64Counter
	downgradeRetries  metric.Int64Counter
	bureauBlocks      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "limitengine"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.graduations, err = meter.Int64Counter("limitengine.graduations",
		metric.WithDescription("Accounts graduated to a higher limit")); err != nil {
		return nil, err
	}
	if m.downgrades, err = meter.Int64Counter("limitengine.downgrades",
		metric.WithDescription("Accounts downgraded to a lower limit")); err != nil {
		return nil, err
	}
	if m.downgradeFailures, err = meter.Int64Counter("limitengine.downgrade_failures",
		metric.WithDescription("Downgrade instructions that failed a precondition")); err != nil {
		return nil, err
	}
	if m.downgradeRetries, err = meter.Int64Counter("limitengine.downgrade_retries",
		metric.WithDescription("Downgrade retry attempts")); err != nil {
		return nil, err
	}
	if m.bureauBlocks, err = meter.Int64Counter("limitengine.bureau_blocks",
		metric.WithDescription("Graduations blocked by the bureau gate")); err != nil {
		return nil, err
	}
	return m, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics protocol %q", protocol)
	}
}

func (m *Metrics) RecordGraduation(ctx context.Context, tier string) {
	if m == nil || m.graduations == nil {
		return
	}
	m.graduations.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

func (m *Metrics) RecordDowngrade(ctx context.Context) {
	if m == nil || m.downgrades == nil {
		return
	}
	m.downgrades.Add(ctx, 1)
}

func (m *Metrics) RecordDowngradeFailure(ctx context.Context, reason string) {
	if m == nil || m.downgradeFailures == nil {
		return
	}
	m.downgradeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordDowngradeRetry(ctx context.Context) {
	if m == nil || m.downgradeRetries == nil {
		return
	}
	m.downgradeRetries.Add(ctx, 1)
}

func (m *Metrics) RecordBureauBlock(ctx context.Context) {
	if m == nil || m.bureauBlocks == nil {
		return
	}
	m.bureauBlocks.Add(ctx, 1)
}
