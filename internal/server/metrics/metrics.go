package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fixed label values for requests that do not resolve to a known object type
// or route. Client input never becomes a label value.
const (
	UnknownObject  = "unknown"
	UnmatchedRoute = "unmatched"
)

// Collector holds all Prometheus metrics for the service
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	// Projection metrics
	Projections        *prometheus.CounterVec
	ProjectionDuration *prometheus.HistogramVec
	NodeMerges         *prometheus.CounterVec
	EdgeMerges         *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry, so tests can build
// as many as they like.
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
		Projections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "projections_total",
				Help:      "Change records projected, by object type and outcome",
			},
			[]string{"object", "status"},
		),
		ProjectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "projection_duration_seconds",
				Help:      "Time spent projecting one change record",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"object"},
		),
		NodeMerges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_merges_total",
				Help:      "Node merges applied, by label",
			},
			[]string{"label"},
		),
		EdgeMerges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edge_merges_total",
				Help:      "Edge merges applied, by relationship type",
			},
			[]string{"rel_type"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.Projections,
		c.ProjectionDuration,
		c.NodeMerges,
		c.EdgeMerges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveProjection records one projection attempt
func (c *Collector) ObserveProjection(object, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.Projections.WithLabelValues(object, status).Inc()
	c.ProjectionDuration.WithLabelValues(object).Observe(d.Seconds())
}

// NodeMerged counts a node merge
func (c *Collector) NodeMerged(label string) {
	if c == nil {
		return
	}
	c.NodeMerges.WithLabelValues(label).Inc()
}

// EdgeMerged counts an edge merge
func (c *Collector) EdgeMerged(relType string) {
	if c == nil {
		return
	}
	c.EdgeMerges.WithLabelValues(relType).Inc()
}

// HTTPRequest counts a served request
func (c *Collector) HTTPRequest(method, route string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
