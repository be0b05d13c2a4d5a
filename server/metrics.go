package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chaos-io/bgremove/rembg"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer, cache *rembg.SessionCache) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgremove_requests_total",
			Help: "Background removal requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bgremove_processing_seconds",
			Help:    "Pipeline processing time by model.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
	}

	reg.MustRegister(
		m.requests,
		m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bgremove_model_loads",
			Help: "Models loaded since start.",
		}, func() float64 { return float64(cache.Loads()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bgremove_cached_sessions",
			Help: "Model sessions currently cached.",
		}, func() float64 { return float64(cache.Len()) }),
	)
	return m
}

func (m *metrics) observe(outcome, model string, seconds float64) {
	m.requests.WithLabelValues(outcome).Inc()
	if outcome == outcomeSuccess {
		m.duration.WithLabelValues(model).Observe(seconds)
	}
}
