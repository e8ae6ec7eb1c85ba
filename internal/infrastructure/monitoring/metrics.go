package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the validation and lifecycle
// paths.
type Metrics struct {
	ValidationRequests *prometheus.CounterVec
	ValidationLatency  *prometheus.HistogramVec
	BatchSize          prometheus.Histogram
	KeysCreated        prometheus.Counter
	KeysRevoked        prometheus.Counter
}

// NewMetrics creates and registers the instruments. A nil registerer uses the
// default registry; tests pass their own to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ValidationRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyforge_validation_requests_total",
				Help: "Total number of key validation requests.",
			},
			[]string{"result", "cached"},
		),
		ValidationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyforge_validation_latency_seconds",
				Help:    "Latency of key validation requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyforge_batch_validation_size",
				Help:    "Number of entries per batch validation request.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		KeysCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "keyforge_keys_created_total",
				Help: "Total number of keys created.",
			},
		),
		KeysRevoked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "keyforge_keys_revoked_total",
				Help: "Total number of keys revoked.",
			},
		),
	}
}

// RecordValidation records one validation outcome.
func (m *Metrics) RecordValidation(valid, cached bool, duration time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.ValidationRequests.WithLabelValues(result, strconv.FormatBool(cached)).Inc()
	m.ValidationLatency.WithLabelValues(result).Observe(duration.Seconds())
}
