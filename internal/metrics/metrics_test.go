package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/cookistry/backend/internal/metrics"
)

func TestObserveImport(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveImport(metrics.ImportCounts{Imported: 3, Updated: 1, Skipped: 2}, nil, 10*time.Millisecond)
	m.ObserveImport(metrics.ImportCounts{}, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportBatches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportBatches.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("skipped")))
}

func TestObserveSearch(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveSearch("search", 12, false)
	m.ObserveSearch("search", 0, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueries.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchFailures.WithLabelValues("search")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveImport(metrics.ImportCounts{Imported: 1}, nil, time.Second)
		m.ObserveSearch("featured", 1, false)
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveRequest("GET", "/api/v1/recipes", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cookistry_http_requests_total{method="GET",route="/api/v1/recipes",status="200"} 1`)
}
