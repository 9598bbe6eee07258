package dashboard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mentionwatch/console/internal/alert"
)

const instrumentationName = "github.com/mentionwatch/console/internal/dashboard"

// Metrics holds the dashboard alert instruments.
type Metrics struct {
	alertsActive metric.Int64Gauge
}

// NewMetrics creates the dashboard instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	alertsActive, err := meter.Int64Gauge(
		"dashboard.alerts.active",
		metric.WithDescription("Alerts in the current feed by severity"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{alertsActive: alertsActive}, nil
}

func (m *Metrics) recordAlerts(ctx context.Context, dashboard string, counts map[alert.Severity]int) {
	if m == nil {
		return
	}
	for _, sev := range alert.AllSeverities() {
		m.alertsActive.Record(ctx, int64(counts[sev]), metric.WithAttributes(
			attribute.String("dashboard", dashboard),
			attribute.String("severity", string(sev)),
		))
	}
}
