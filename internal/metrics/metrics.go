package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loadsTotal          *prometheus.CounterVec
	loadDuration        *prometheus.HistogramVec
	staleDiscarded      *prometheus.CounterVec
	pending             *prometheus.GaugeVec
	nodes               prometheus.Gauge
	refreshRuns         prometheus.Counter
	statSamples         *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP and load metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "explorer",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by explorer-core",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "explorer",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by explorer-core",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "explorer",
		Name:      "loads_total",
		Help:      "Total number of loads by resource and outcome",
	}, []string{"resource", "outcome"})

	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "explorer",
		Name:      "load_duration_seconds",
		Help:      "Duration of loads from start to finish",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"resource"})

	staleDiscarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "explorer",
		Name:      "stale_results_discarded_total",
		Help:      "Load results dropped because a newer load of the same resource started",
	}, []string{"resource"})

	pending := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "explorer",
		Name:      "pending",
		Help:      "1 while a resource has an outstanding load",
	}, []string{"resource"})

	nodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "explorer",
		Name:      "nodes",
		Help:      "Number of nodes in the current node set",
	})

	refreshRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "explorer",
		Name:      "refresh_runs_total",
		Help:      "Total number of background refresh runs",
	})

	statSamples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "explorer",
		Name:      "stat_samples_total",
		Help:      "Node stat samples taken by source and outcome",
	}, []string{"source", "outcome"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		loadsTotal,
		loadDuration,
		staleDiscarded,
		pending,
		nodes,
		refreshRuns,
		statSamples,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		loadsTotal:          loadsTotal,
		loadDuration:        loadDuration,
		staleDiscarded:      staleDiscarded,
		pending:             pending,
		nodes:               nodes,
		refreshRuns:         refreshRuns,
		statSamples:         statSamples,
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

// ObserveLoad records a finished load. outcome is "ok", "error" or "stale".
func (m *Metrics) ObserveLoad(resource, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(resource, outcome).Inc()
	m.loadDuration.WithLabelValues(resource).Observe(duration.Seconds())
	if outcome == "stale" {
		m.staleDiscarded.WithLabelValues(resource).Inc()
	}
}

// SetPending follows the busy flag of a pending resource.
func (m *Metrics) SetPending(resource string, busy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if busy {
		v = 1
	}
	m.pending.WithLabelValues(resource).Set(v)
}

func (m *Metrics) SetNodeCount(n int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(n))
}

// IncRefreshRun increments the refresh run counter.
func (m *Metrics) IncRefreshRun() {
	if m == nil {
		return
	}
	m.refreshRuns.Inc()
}

func (m *Metrics) IncStatSample(source, outcome string) {
	if m == nil {
		return
	}
	m.statSamples.WithLabelValues(source, outcome).Inc()
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
