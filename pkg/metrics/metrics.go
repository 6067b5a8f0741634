// Package metrics exposes the Prometheus collectors shared by the directory
// client, the topology builder, the session machine and the inspector.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Directory client
	DirectoryRequestsTotal   *prometheus.CounterVec
	DirectoryRequestDuration *prometheus.HistogramVec

	// Topology
	GraphBuildDuration  prometheus.Histogram
	GraphNodes          prometheus.Gauge
	GraphEdges          prometheus.Gauge
	DegradedTopicsTotal prometheus.Counter
	DiscoveryRunsTotal  *prometheus.CounterVec

	// Session
	SessionTransitionsTotal *prometheus.CounterVec
	SessionState            *prometheus.GaugeVec

	// Inspector HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	EventSubscribers    prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{registry: reg}
	f := promauto.With(reg)

	r.DirectoryRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "hdsview_directory_requests_total",
		Help: "Directory requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	r.DirectoryRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdsview_directory_request_duration_seconds",
		Help:    "Directory request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	r.GraphBuildDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "hdsview_graph_build_duration_seconds",
		Help:    "Time to fetch all topic memberships and build the graph",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})
	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Name: "hdsview_graph_nodes",
		Help: "Nodes in the most recently built graph",
	})
	r.GraphEdges = f.NewGauge(prometheus.GaugeOpts{
		Name: "hdsview_graph_edges",
		Help: "Edges in the most recently built graph",
	})
	r.DegradedTopicsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "hdsview_degraded_topics_total",
		Help: "Topics whose membership fetch failed during a build",
	})
	r.DiscoveryRunsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "hdsview_discovery_runs_total",
		Help: "Discovery runs by outcome",
	}, []string{"outcome"})

	r.SessionTransitionsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "hdsview_session_transitions_total",
		Help: "Session state transitions by target state",
	}, []string{"state"})
	r.SessionState = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hdsview_session_state",
		Help: "1 for the current session state, 0 otherwise",
	}, []string{"state"})

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "hdsview_http_requests_total",
		Help: "Inspector HTTP requests",
	}, []string{"method", "route", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdsview_http_request_duration_seconds",
		Help:    "Inspector HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	r.EventSubscribers = f.NewGauge(prometheus.GaugeOpts{
		Name: "hdsview_event_subscribers",
		Help: "Connected WebSocket event subscribers",
	})

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordDirectoryRequest records one directory call. outcome is "ok" or an
// error code.
func (r *Registry) RecordDirectoryRequest(endpoint, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.DirectoryRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.DirectoryRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordGraphBuild records a completed graph build.
func (r *Registry) RecordGraphBuild(nodes, edges, degraded int, duration time.Duration) {
	if r == nil {
		return
	}
	r.GraphBuildDuration.Observe(duration.Seconds())
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
	r.DegradedTopicsTotal.Add(float64(degraded))
}

// RecordDiscovery records a discovery run outcome.
func (r *Registry) RecordDiscovery(outcome string) {
	if r == nil {
		return
	}
	r.DiscoveryRunsTotal.WithLabelValues(outcome).Inc()
}

// SetSessionState records a transition and marks state as current among all.
func (r *Registry) SetSessionState(state string, all []string) {
	if r == nil {
		return
	}
	r.SessionTransitionsTotal.WithLabelValues(state).Inc()
	for _, s := range all {
		r.SessionState.WithLabelValues(s).Set(0)
	}
	r.SessionState.WithLabelValues(state).Set(1)
}

// RecordHTTPRequest records an inspector HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetEventSubscribers records the number of live event stream clients.
func (r *Registry) SetEventSubscribers(n int) {
	if r == nil {
		return
	}
	r.EventSubscribers.Set(float64(n))
}
