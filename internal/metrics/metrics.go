// Package metrics exposes the Prometheus collectors for imports, recipe
// searches and HTTP traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cookistry"

// ImportCounts is the per-batch tally reported by the importer.
type ImportCounts struct {
	Imported int
	Updated  int
	Skipped  int
}

// Metrics holds every collector the service records.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Import metrics
	ImportBatches  *prometheus.CounterVec
	ImportRows     *prometheus.CounterVec
	ImportDuration prometheus.Histogram

	// Finder metrics
	SearchQueries  *prometheus.CounterVec
	SearchFailures *prometheus.CounterVec
	SearchResults  *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Passing a fresh registry keeps
// tests independent of the global one.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}
	initImportMetrics(m, factory)
	initSearchMetrics(m, factory)
	initHTTPMetrics(m, factory)
	return m
}

func initImportMetrics(m *Metrics, f promauto.Factory) {
	m.ImportBatches = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_batches_total",
		Help:      "CSV import batches by result (success, failed)",
	}, []string{"result"})

	m.ImportRows = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Imported CSV rows by outcome (imported, updated, skipped)",
	}, []string{"outcome"})

	m.ImportDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "import_duration_seconds",
		Help:      "Time to process one CSV batch",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
}

func initSearchMetrics(m *Metrics, f promauto.Factory) {
	m.SearchQueries = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "finder_queries_total",
		Help:      "Recipe finder queries by mode (search, ingredients, featured)",
	}, []string{"mode"})

	m.SearchFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "finder_failures_total",
		Help:      "Recipe finder queries that degraded to empty results",
	}, []string{"mode"})

	m.SearchResults = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "finder_results",
		Help:      "Number of recipes returned per query",
		Buckets:   []float64{0, 1, 5, 12, 20, 50, 100},
	}, []string{"mode"})
}

func initHTTPMetrics(m *Metrics, f promauto.Factory) {
	m.RequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	m.RequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// ObserveImport records the outcome of one import batch.
func (m *Metrics) ObserveImport(c ImportCounts, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.ImportDuration.Observe(d.Seconds())
	if err != nil {
		m.ImportBatches.WithLabelValues("failed").Inc()
		return
	}
	m.ImportBatches.WithLabelValues("success").Inc()
	m.ImportRows.WithLabelValues("imported").Add(float64(c.Imported))
	m.ImportRows.WithLabelValues("updated").Add(float64(c.Updated))
	m.ImportRows.WithLabelValues("skipped").Add(float64(c.Skipped))
}

// ObserveSearch records one finder query. failed marks a query whose store
// call errored and was answered with an empty result.
func (m *Metrics) ObserveSearch(mode string, results int, failed bool) {
	if m == nil {
		return
	}
	m.SearchQueries.WithLabelValues(mode).Inc()
	if failed {
		m.SearchFailures.WithLabelValues(mode).Inc()
	}
	m.SearchResults.WithLabelValues(mode).Observe(float64(results))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
