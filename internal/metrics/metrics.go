package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	RenderSelected = "selected"
	RenderDefault  = "default"
	RenderFallback = "fallback"
	RenderError    = "error"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	renders             *prometheus.CounterVec
	renderDuration      prometheus.Histogram
	datasetFeatures     prometheus.Gauge
	datasetSeries       prometheus.Gauge
	datasetLoadDuration prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP, render and dataset metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "permitmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by permitmap",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "permitmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by permitmap",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	renders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "permitmap",
		Name:      "map_renders_total",
		Help:      "Map page renders by outcome (selected, default, fallback, error)",
	}, []string{"outcome"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "permitmap",
		Name:      "map_render_duration_seconds",
		Help:      "Time spent building a choropleth figure",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	datasetFeatures := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "permitmap",
		Name:      "dataset_features",
		Help:      "Number of ZIP boundary features loaded",
	})

	datasetSeries := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "permitmap",
		Name:      "dataset_series",
		Help:      "Number of precomputed (year, permit type) series",
	})

	datasetLoadDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "permitmap",
		Name:      "dataset_load_duration_seconds",
		Help:      "Time taken to load and aggregate the dataset at startup",
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		httpRequests,
		httpRequestDuration,
		renders,
		renderDuration,
		datasetFeatures,
		datasetSeries,
		datasetLoadDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		renders:             renders,
		renderDuration:      renderDuration,
		datasetFeatures:     datasetFeatures,
		datasetSeries:       datasetSeries,
		datasetLoadDuration: datasetLoadDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncRender counts one page render with the given outcome.
func (m *Metrics) IncRender(outcome string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
}

// ObserveRenderDuration observes the time spent building one figure.
func (m *Metrics) ObserveRenderDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(duration.Seconds())
}

// SetDataset records the size of the loaded dataset and how long it took to build.
func (m *Metrics) SetDataset(features, series int, loadDuration time.Duration) {
	if m == nil {
		return
	}
	m.datasetFeatures.Set(float64(features))
	m.datasetSeries.Set(float64(series))
	m.datasetLoadDuration.Set(loadDuration.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
