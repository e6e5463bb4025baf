// Package obs holds the pipeline's Prometheus instrumentation.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quantpipe"

// Metrics are the pipeline counters and histograms. Construct once with
// NewMetrics and share across engines.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleErrors     prometheus.Counter
	CycleDuration   prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec
	OrdersProposed  prometheus.Counter
	OrdersSkipped   *prometheus.CounterVec
	OrdersSubmitted prometheus.Counter
	OrdersFailed    prometheus.Counter
	AnomaliesTotal  *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycles_total",
			Help:      "Trading cycles started.",
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycle_errors_total",
			Help:      "Trading cycles aborted by a fatal error.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one trading cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "signals_total",
			Help:      "Signals generated, by direction.",
		}, []string{"direction"}),
		OrdersProposed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "orders_proposed_total",
			Help:      "Orders produced by portfolio optimization.",
		}),
		OrdersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "orders_skipped_total",
			Help:      "Orders vetoed pre-trade, by violation code.",
		}, []string{"code"}),
		OrdersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "orders_submitted_total",
			Help:      "Orders accepted by the broker.",
		}),
		OrdersFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "orders_failed_total",
			Help:      "Orders that failed at the broker.",
		}),
		AnomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "anomalies_total",
			Help:      "Market data anomalies detected, by type.",
		}, []string{"type"}),
	}
}
