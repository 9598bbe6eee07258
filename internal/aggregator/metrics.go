package aggregator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mentionwatch/console/internal/signal"
)

const instrumentationName = "github.com/mentionwatch/console/internal/aggregator"

// Metrics holds the OpenTelemetry instruments for aggregation cycles.
type Metrics struct {
	cycleDuration  metric.Float64Histogram
	cycleTotal     metric.Int64Counter
	sourceFailures metric.Int64Counter
	coalesced      metric.Int64Counter
}

// NewMetrics creates the cycle instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	cycleDuration, err := meter.Float64Histogram(
		"dashboard.cycle.duration",
		metric.WithDescription("Duration of aggregation cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cycleTotal, err := meter.Int64Counter(
		"dashboard.cycle.total",
		metric.WithDescription("Total number of completed aggregation cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	sourceFailures, err := meter.Int64Counter(
		"dashboard.source.failures",
		metric.WithDescription("Signal fetches that produced a failed snapshot"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	coalesced, err := meter.Int64Counter(
		"dashboard.cycle.coalesced",
		metric.WithDescription("Refresh triggers dropped because a cycle was running"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		cycleDuration:  cycleDuration,
		cycleTotal:     cycleTotal,
		sourceFailures: sourceFailures,
		coalesced:      coalesced,
	}, nil
}

func (m *Metrics) recordCycle(ctx context.Context, dashboard string, d time.Duration, failed []signal.SourceID) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("dashboard", dashboard))
	m.cycleDuration.Record(ctx, d.Seconds(), attrs)
	m.cycleTotal.Add(ctx, 1, attrs)
	for _, id := range failed {
		m.sourceFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dashboard", dashboard),
			attribute.String("source", string(id)),
		))
	}
}

func (m *Metrics) recordCoalesced(ctx context.Context, dashboard string) {
	if m == nil {
		return
	}
	m.coalesced.Add(ctx, 1, metric.WithAttributes(attribute.String("dashboard", dashboard)))
}
