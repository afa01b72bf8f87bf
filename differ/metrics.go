package differ

import (
	"github.com/prometheus/client_golang/prometheus"
)

// --- Metrics ---

// Metrics holds all the Prometheus metrics for the differ.
type Metrics struct {
	diffDuration prometheus.Histogram
	diffsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics for the differ.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_state_diff_duration_seconds",
			Help:    "Time taken to compute the pool state diff.",
			Buckets: prometheus.DefBuckets,
		}),
		diffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_state_diffs_total",
			Help: "Total number of state diffs computed, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.diffDuration, m.diffsTotal)
	return m
}
