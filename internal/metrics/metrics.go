// Package metrics exposes Prometheus instrumentation for conversions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contacts"

// Metrics records conversion outcomes. All methods are safe for concurrent
// use.
type Metrics struct {
	conversions *prometheus.CounterVec
	rows        prometheus.Counter
	duration    prometheus.Histogram
	gatherer    prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg gets a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Contact conversions by result (success or error kind).",
		}, []string{"result"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_converted_total",
			Help:      "Contact rows written by successful conversions.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting one upload.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.conversions, m.rows, m.duration)
	return m
}

// ObserveConversion records one conversion. result is "success" or an error
// kind; rows counts only on success.
func (m *Metrics) ObserveConversion(result string, rows int, elapsed time.Duration) {
	m.conversions.WithLabelValues(result).Inc()
	if result == "success" {
		m.rows.Add(float64(rows))
	}
	m.duration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
