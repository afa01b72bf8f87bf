package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Observe("swap", time.Now(), nil)
	m.Observe("swap", time.Now(), nil)
	m.Observe("swap", time.Now(), errors.New("boom"))
	m.AddSwapVolume("USDT-WETH-LP", "USDT", 1500)
	m.SetPairs(2)
	m.SubscriberAdded()
	m.SubscriberAdded()
	m.SubscriberRemoved()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.operationsTotal.WithLabelValues("swap", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operationsTotal.WithLabelValues("swap", "error")))
	assert.Equal(t, float64(1500), testutil.ToFloat64(m.swapVolume.WithLabelValues("USDT-WETH-LP", "USDT")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.pairs))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscribers))

	assert.Panics(t, func() { NewMetrics(reg) }, "registering twice is a programmer error")
}
