package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mentionwatch/console/internal/api/middleware"
)

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/dashboards/{dashboardId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"operations", "cursors"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/dashboards/"+id, http.NoBody))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total *metricdata.Sum[int64]
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.server.request.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				total = &sum
			}
		}
	}
	require.NotNil(t, total)
	require.Len(t, total.DataPoints, 1)

	dp := total.DataPoints[0]
	assert.Equal(t, int64(2), dp.Value)
	route, _ := dp.Attributes.Value("http.route")
	assert.Equal(t, "/v1/dashboards/{dashboardId}", route.AsString())
	status, _ := dp.Attributes.Value("http.status_code")
	assert.Equal(t, "404", status.AsString())
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metrics.Middleware()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
}
