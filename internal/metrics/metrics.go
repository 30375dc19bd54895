// Package metrics exposes Prometheus counters and histograms for the NFS
// server: per-procedure call counts and latency, active connection count,
// and bytes transferred. Pass a nil *Metrics anywhere one is accepted to
// disable collection with zero overhead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector this server registers, plus the registry
// they're registered against so Server can serve it over HTTP.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	bytesTransferred  *prometheus.CounterVec
}

// New registers a fresh set of collectors against their own registry and
// returns the Metrics handle.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsd3_requests_total",
				Help: "Total NFS/MOUNT/PORTMAP requests handled, by procedure and outcome.",
			},
			[]string{"procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nfsd3_request_duration_seconds",
				Help:    "Request handling latency by procedure.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"procedure"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "nfsd3_active_connections",
				Help: "Number of currently open client TCP connections.",
			},
		),
		connectionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "nfsd3_connections_accepted_total",
				Help: "Total TCP connections accepted since startup.",
			},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsd3_bytes_transferred_total",
				Help: "Bytes moved by READ and WRITE procedures, by direction.",
			},
			[]string{"direction"}, // "read" or "write"
		),
	}
}

// Registry returns the registry these collectors are registered against,
// for wiring into an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest records one completed request's outcome and latency.
func (m *Metrics) RecordRequest(procedure, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(procedure, status).Inc()
	m.requestDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// RecordBytes records bytes moved by a READ ("read") or WRITE ("write").
func (m *Metrics) RecordBytes(direction string, n uint64) {
	if m == nil {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(n))
}

// ConnectionOpened increments the accepted-connections counter and the
// active-connections gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.activeConnections.Inc()
}

// ConnectionClosed decrements the active-connections gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}
