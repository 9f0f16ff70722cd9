// Package observability exposes Prometheus metrics for circle activity.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type circleMetrics struct {
	circlesCreated *prometheus.CounterVec
	joins          prometheus.Counter
	deposits       *prometheus.CounterVec
	payouts        *prometheus.CounterVec
	payoutVolume   *prometheus.CounterVec
	cancellations  prometheus.Counter
	opErrors       *prometheus.CounterVec
}

var (
	circleMetricsOnce sync.Once
	circleRegistry    *circleMetrics
)

// Circles returns the lazily-initialised metrics registry tracking circle
// lifecycle activity.
func Circles() *circleMetrics {
	circleMetricsOnce.Do(func() {
		circleRegistry = &circleMetrics{
			circlesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "created_total",
				Help:      "Count of circles created, segmented by asset.",
			}, []string{"asset"}),
			joins: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "joins_total",
				Help:      "Count of successful circle joins.",
			}),
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "deposits_total",
				Help:      "Count of recorded contributions, segmented by asset.",
			}, []string{"asset"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "payouts_total",
				Help:      "Count of released payouts, segmented by asset.",
			}, []string{"asset"}),
			payoutVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "payout_volume_total",
				Help:      "Total amount released to recipients, segmented by asset.",
			}, []string{"asset"}),
			cancellations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "cancellations_total",
				Help:      "Count of cancelled circles.",
			}),
			opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tanda",
				Subsystem: "circles",
				Name:      "operation_errors_total",
				Help:      "Count of rejected operations, segmented by operation and error kind.",
			}, []string{"operation", "kind"}),
		}
		prometheus.MustRegister(
			circleRegistry.circlesCreated,
			circleRegistry.joins,
			circleRegistry.deposits,
			circleRegistry.payouts,
			circleRegistry.payoutVolume,
			circleRegistry.cancellations,
			circleRegistry.opErrors,
		)
	})
	return circleRegistry
}

// RecordCreated increments the circle creation counter.
func (m *circleMetrics) RecordCreated(asset string) {
	if m == nil {
		return
	}
	m.circlesCreated.WithLabelValues(asset).Inc()
}

// RecordJoin increments the join counter.
func (m *circleMetrics) RecordJoin() {
	if m == nil {
		return
	}
	m.joins.Inc()
}

// RecordDeposit increments the deposit counter for the asset.
func (m *circleMetrics) RecordDeposit(asset string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(asset).Inc()
}

// RecordPayout counts one payout and adds its amount to the volume counter.
func (m *circleMetrics) RecordPayout(asset string, amount int64) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(asset).Inc()
	m.payoutVolume.WithLabelValues(asset).Add(float64(amount))
}

// RecordCancellation increments the cancellation counter.
func (m *circleMetrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordError counts a rejected operation by error kind.
func (m *circleMetrics) RecordError(operation, kind string) {
	if m == nil {
		return
	}
	m.opErrors.WithLabelValues(operation, kind).Inc()
}
