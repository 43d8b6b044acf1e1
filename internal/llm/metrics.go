package llm

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	attempts  prometheus.Counter
	failures  *prometheus.CounterVec
	exhausted prometheus.Counter
	latency   prometheus.Histogram
}

func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	m := &gatewayMetrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "legalease",
			Subsystem: "gateway",
			Name:      "attempts_total",
			Help:      "HTTP attempts issued to the generation service.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalease",
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Failed attempts by reason.",
		}, []string{"reason"}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "legalease",
			Subsystem: "gateway",
			Name:      "exhausted_total",
			Help:      "Requests that used up their retry budget.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legalease",
			Subsystem: "gateway",
			Name:      "request_seconds",
			Help:      "Latency of individual attempts.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
	}
	if reg == nil {
		return m
	}
	m.attempts = register(reg, m.attempts)
	m.failures = register(reg, m.failures)
	m.exhausted = register(reg, m.exhausted)
	m.latency = register(reg, m.latency)
	return m
}

// register reuses an already registered collector so several clients can share
// one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
