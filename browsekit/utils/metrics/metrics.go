// Package metrics exposes Prometheus collectors for remote calls and batches.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	batchItems     *prometheus.CounterVec
	batchesActive  prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers fresh collectors with reg and panics on conflicts.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "browsekit",
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Calls made to the hosted browser, by operation and outcome.",
		}, []string{"op", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "browsekit",
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Latency of hosted browser calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"op"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "browsekit",
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Batch items processed, by outcome.",
		}, []string{"outcome"}),
		batchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "browsekit",
			Subsystem: "batch",
			Name:      "active",
			Help:      "Batches currently being sequenced.",
		}),
	}
	reg.MustRegister(m.remoteCalls, m.remoteDuration, m.batchItems, m.batchesActive)
	return m
}

// ObserveRemote records one hosted browser call.
func (m *Metrics) ObserveRemote(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.remoteCalls.WithLabelValues(op, outcome).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// BatchItem records one finished batch item.
func (m *Metrics) BatchItem(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.batchItems.WithLabelValues(outcome).Inc()
}

// BatchStarted marks a batch as running and returns the matching done func.
func (m *Metrics) BatchStarted() func() {
	if m == nil {
		return func() {}
	}
	m.batchesActive.Inc()
	return m.batchesActive.Dec
}
