package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors for ledger operations
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TokensMoved       *prometheus.CounterVec
	BalanceMismatches prometheus.Gauge
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total ledger operations by outcome.",
			},
			[]string{"op", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger operation duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		TokensMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_tokens_moved_total",
				Help: "Total tokens credited, debited or transferred.",
			},
			[]string{"type"},
		),
		BalanceMismatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_balance_mismatches",
				Help: "Ledgers whose stored balance differs from their transaction log at the last sweep.",
			},
		),
	}

	registry.MustRegister(
		m.Operations,
		m.OperationDuration,
		m.TokensMoved,
		m.BalanceMismatches,
	)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case IsClientError(err):
		status = "rejected"
	default:
		status = "error"
	}
	m.Operations.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) moved(kind string, amount float64) {
	if m == nil {
		return
	}
	m.TokensMoved.WithLabelValues(kind).Add(amount)
}

func (m *Metrics) mismatches(n int) {
	if m == nil {
		return
	}
	m.BalanceMismatches.Set(float64(n))
}
