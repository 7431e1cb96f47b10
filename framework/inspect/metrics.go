package inspect

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-dibridge/framework/transform"
)

const namespace = "dibridge"

// Metrics holds the bridge's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	lookups    *prometheus.CounterVec
	transforms *prometheus.CounterVec
	outcomes   *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Lookups through the container facade",
		},
		[]string{"kind", "result"},
	)
	m.transforms = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Graph transforms run, by direction",
		},
		[]string{"direction"},
	)
	m.outcomes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transform_entries",
			Help:      "Entries produced by the last transform of each direction",
		},
		[]string{"direction", "outcome"},
	)

	m.registry.MustRegister(m.lookups, m.transforms, m.outcomes)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransform records the outcome of one transform.
func (m *Metrics) ObserveTransform(direction string, r *transform.Result) {
	m.transforms.WithLabelValues(direction).Inc()
	for outcome, n := range map[string]int{
		"created":     len(r.Created),
		"reused":      len(r.Reused),
		"anonymous":   len(r.Anonymous),
		"skipped":     len(r.Skipped),
		"warnings":    len(r.Warnings),
		"ambiguities": len(r.Ambiguities),
	} {
		m.outcomes.WithLabelValues(direction, outcome).Set(float64(n))
	}
}

func (m *Metrics) lookup(kind, result string) {
	m.lookups.WithLabelValues(kind, result).Inc()
}
