package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. Each collector owns
// its registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Search metrics
	Searches      *prometheus.CounterVec
	SearchDegrees prometheus.Histogram

	// Collaborator metrics
	MetadataLookups *prometheus.CounterVec
	GraphLoads      *prometheus.CounterVec
	GraphLoadTime   prometheus.Histogram
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_searches_total",
				Help:      "Connection searches by outcome",
			},
			[]string{"outcome"},
		),
		SearchDegrees: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connection_degrees",
				Help:      "Degrees of separation of found connections",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
			},
		),
		MetadataLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edge_metadata_lookups_total",
				Help:      "Edge metadata lookups by status",
			},
			[]string{"status"},
		),
		GraphLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_loads_total",
				Help:      "Graph store fetches by result",
			},
			[]string{"result"},
		),
		GraphLoadTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_load_duration_seconds",
				Help:      "Time spent fetching and decoding the graph",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Searches,
		c.SearchDegrees,
		c.MetadataLookups,
		c.GraphLoads,
		c.GraphLoadTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry exposes the registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records a finished request. route is the chi route pattern so
// path parameters do not explode label cardinality.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSearch records a connection search outcome; degrees below zero are
// not observed.
func (c *Collector) ObserveSearch(outcome string, degrees int) {
	if c == nil {
		return
	}
	c.Searches.WithLabelValues(outcome).Inc()
	if degrees >= 0 {
		c.SearchDegrees.Observe(float64(degrees))
	}
}

// ObserveMetadataLookup records one edge lookup.
func (c *Collector) ObserveMetadataLookup(status string) {
	if c == nil {
		return
	}
	c.MetadataLookups.WithLabelValues(status).Inc()
}

// ObserveGraphLoad records one graph fetch.
func (c *Collector) ObserveGraphLoad(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.GraphLoads.WithLabelValues(result).Inc()
	c.GraphLoadTime.Observe(elapsed.Seconds())
}
