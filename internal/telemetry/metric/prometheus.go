package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respkv"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Connection metrics
	ConnectionsActive   prometheus.Gauge
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Protocol metrics
	ProtocolErrors prometheus.Counter
	RateLimited    prometheus.Counter
}

var (
	globalRegistry *Registry
	globalOnce     sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry creates a registry with Go runtime and process collectors
// already registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open client connections",
		}),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total client connections accepted",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Total client connections refused",
		}, []string{"reason"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands executed",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"command"}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Total connections closed because of malformed input",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total requests refused by the per-client rate limiter",
		}),
	}

	reg.MustRegister(
		r.ConnectionsActive,
		r.ConnectionsAccepted,
		r.ConnectionsRejected,
		r.CommandsTotal,
		r.CommandDuration,
		r.ProtocolErrors,
		r.RateLimited,
	)
	return r
}

// MustRegister registers additional collectors, such as a KeyspaceCollector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	r.ConnectionsAccepted.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	r.ConnectionsActive.Dec()
}

// ConnRejected records a connection refused for reason.
func (r *Registry) ConnRejected(reason string) {
	r.ConnectionsRejected.WithLabelValues(reason).Inc()
}

// RecordCommand counts one executed command. status is "ok" or "error".
func (r *Registry) RecordCommand(command, status string, seconds float64) {
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// IncProtocolErrors counts a connection closed on malformed input.
func (r *Registry) IncProtocolErrors() {
	r.ProtocolErrors.Inc()
}

// IncRateLimited counts a request refused by the rate limiter.
func (r *Registry) IncRateLimited() {
	r.RateLimited.Inc()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
