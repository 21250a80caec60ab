// Package metrics records escrow engine measurements for Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels recorded on operation counters.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the escrow engine's Prometheus collectors.
//
// A nil *Metrics is a valid no-op receiver, so callers can skip wiring
// metrics entirely in tests.
type Metrics struct {
	operationsTotal  *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec
	releasedTotal    prometheus.Counter
}

// New builds the escrow collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackflow_operations_total",
				Help: "Total number of escrow engine operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		operationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackflow_operation_duration_seconds",
				Help:    "Duration of escrow engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		releasedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trackflow_released_amount_total",
				Help: "Total escrowed amount released to carriers.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operationsTotal, m.operationSeconds, m.releasedTotal)
	}
	return m
}

// ObserveOperation records one engine operation with its outcome and duration.
func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationSeconds.WithLabelValues(operation).Observe(seconds)
}

// AddReleased records escrow funds released to a carrier.
func (m *Metrics) AddReleased(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.releasedTotal.Add(float64(amount))
}
