// Package metrics exposes Prometheus metrics for the exchange service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the Prometheus metrics for exchange operations.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	swapVolume        *prometheus.CounterVec
	pairs             prometheus.Gauge
	subscribers       prometheus.Gauge
}

// NewMetrics creates and registers the metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_operations_total",
			Help: "Total number of exchange operations, labeled by operation and result.",
		}, []string{"op", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_operation_duration_seconds",
			Help:    "Time taken to execute an exchange operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_swap_volume_total",
			Help: "Total input amount swapped, in the input asset's base units, labeled by pair and input asset.",
		}, []string{"pair", "asset"}),
		pairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_pairs",
			Help: "Number of pairs registered in the factory.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_stream_subscribers",
			Help: "Number of active pool stream subscriptions.",
		}),
	}
	reg.MustRegister(m.operationsTotal, m.operationDuration, m.swapVolume, m.pairs, m.subscribers)
	return m
}

// Observe records the outcome and duration of an operation that started at start.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operationsTotal.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// AddSwapVolume adds amount to the swap volume of pair in asset.
func (m *Metrics) AddSwapVolume(pair, asset string, amount float64) {
	m.swapVolume.WithLabelValues(pair, asset).Add(amount)
}

func (m *Metrics) SetPairs(n int) { m.pairs.Set(float64(n)) }

func (m *Metrics) SubscriberAdded()   { m.subscribers.Inc() }
func (m *Metrics) SubscriberRemoved() { m.subscribers.Dec() }
