// Package metrics defines the engine's Prometheus collectors: reactor
// connection/byte counters, IP-limiter rejection counters, and file-cache
// hit/miss/eviction counters, grounded on nabbar-golib/prometheus's
// name+help+label construction style (simplified here to direct
// client_golang vectors, since the engine only needs a fixed, known set
// of metrics rather than nabbar's generic runtime-registered Metric type).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the engine emits. Construct with New
// and register with Registry.MustRegister (or a custom registry in tests).
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	BytesRead         prometheus.Counter
	BytesWritten      prometheus.Counter

	LimiterRejections *prometheus.CounterVec

	FileCacheHits      prometheus.Counter
	FileCacheMisses    prometheus.Counter
	FileCacheEvictions prometheus.Counter
}

// New builds an unregistered Metrics bundle under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total connections accepted.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Total bytes read from client sockets.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total bytes written to client sockets.",
		}),
		LimiterRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limiter_rejections_total",
			Help:      "Connections/requests rejected by the per-IP limiter, by reason.",
		}, []string{"reason"}),
		FileCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_cache_hits_total",
			Help:      "File cache lookups served from cache.",
		}),
		FileCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_cache_misses_total",
			Help:      "File cache lookups that required opening the file.",
		}),
		FileCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_cache_evictions_total",
			Help:      "File cache entries evicted to make room for a new open.",
		}),
	}
}

// MustRegister registers every collector in the bundle against reg.
func (m *Metrics) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.BytesRead,
		m.BytesWritten,
		m.LimiterRejections,
		m.FileCacheHits,
		m.FileCacheMisses,
		m.FileCacheEvictions,
	)
}
