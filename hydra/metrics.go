/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DispatchOutcome is how a single dispatch attempt ended.
type DispatchOutcome string

// Dispatch outcomes.
const (
	DispatchOutcomeSuccess DispatchOutcome = "success"
	DispatchOutcomeRetry   DispatchOutcome = "retry"
	DispatchOutcomeFailure DispatchOutcome = "failure"
)

// MetricsCollector is an interface for collecting dispatcher metrics.
type MetricsCollector interface {
	// ObserveDispatch counts one finished dispatch attempt with its outcome and failure kind.
	ObserveDispatch(outcome DispatchOutcome, kind FailureKind)

	// ObserveBatchFlushed counts one successfully flushed batch.
	ObserveBatchFlushed(resultCount int)

	// SetQueueLength reports the current pending-request queue length.
	SetQueueLength(n int)

	// SetInFlightSlots reports how many slots currently carry an in-flight call.
	SetInFlightSlots(n int)

	// SetBufferedResults reports how many completed results are buffered but not flushed.
	SetBufferedResults(n int)
}

// NullMetricsCollector is a no-op implementation of MetricsCollector.
type NullMetricsCollector struct{}

// ObserveDispatch is a no-op.
func (NullMetricsCollector) ObserveDispatch(outcome DispatchOutcome, kind FailureKind) {}

// ObserveBatchFlushed is a no-op.
func (NullMetricsCollector) ObserveBatchFlushed(resultCount int) {}

// SetQueueLength is a no-op.
func (NullMetricsCollector) SetQueueLength(n int) {}

// SetInFlightSlots is a no-op.
func (NullMetricsCollector) SetInFlightSlots(n int) {}

// SetBufferedResults is a no-op.
func (NullMetricsCollector) SetBufferedResults(n int) {}

// PrometheusMetricsCollector is a Prometheus metrics collector for the dispatcher.
type PrometheusMetricsCollector struct {
	// Dispatches is a counter of finished dispatch attempts by outcome and failure kind.
	Dispatches *prometheus.CounterVec

	// FlushedBatches is a counter of successfully flushed batches.
	FlushedBatches prometheus.Counter

	// FlushedResults is a counter of results written out with flushed batches.
	FlushedResults prometheus.Counter

	// QueueLength is a gauge of the pending-request queue length.
	QueueLength prometheus.Gauge

	// InFlightSlots is a gauge of slots with an in-flight call.
	InFlightSlots prometheus.Gauge

	// BufferedResults is a gauge of buffered, not yet flushed results.
	BufferedResults prometheus.Gauge
}

var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydra_dispatches_total",
			Help:      "A counter of finished dispatch attempts by outcome and failure kind.",
		}, []string{"outcome", "kind"}),
		FlushedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydra_flushed_batches_total",
			Help:      "A counter of successfully flushed batches.",
		}),
		FlushedResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydra_flushed_results_total",
			Help:      "A counter of results written out with flushed batches.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hydra_queue_length",
			Help:      "A gauge of the pending-request queue length.",
		}),
		InFlightSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hydra_in_flight_slots",
			Help:      "A gauge of credential slots with an in-flight call.",
		}),
		BufferedResults: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hydra_buffered_results",
			Help:      "A gauge of buffered, not yet flushed results.",
		}),
	}
}

// MustRegister registers the Prometheus metrics.
func (p *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(
		p.Dispatches, p.FlushedBatches, p.FlushedResults, p.QueueLength, p.InFlightSlots, p.BufferedResults)
}

// Unregister the Prometheus metrics.
func (p *PrometheusMetricsCollector) Unregister() {
	prometheus.Unregister(p.Dispatches)
	prometheus.Unregister(p.FlushedBatches)
	prometheus.Unregister(p.FlushedResults)
	prometheus.Unregister(p.QueueLength)
	prometheus.Unregister(p.InFlightSlots)
	prometheus.Unregister(p.BufferedResults)
}

// ObserveDispatch implements the MetricsCollector interface.
func (p *PrometheusMetricsCollector) ObserveDispatch(outcome DispatchOutcome, kind FailureKind) {
	p.Dispatches.WithLabelValues(string(outcome), string(kind)).Inc()
}

// ObserveBatchFlushed implements the MetricsCollector interface.
func (p *PrometheusMetricsCollector) ObserveBatchFlushed(resultCount int) {
	p.FlushedBatches.Inc()
	p.FlushedResults.Add(float64(resultCount))
}

// SetQueueLength implements the MetricsCollector interface.
func (p *PrometheusMetricsCollector) SetQueueLength(n int) {
	p.QueueLength.Set(float64(n))
}

// SetInFlightSlots implements the MetricsCollector interface.
func (p *PrometheusMetricsCollector) SetInFlightSlots(n int) {
	p.InFlightSlots.Set(float64(n))
}

// SetBufferedResults implements the MetricsCollector interface.
func (p *PrometheusMetricsCollector) SetBufferedResults(n int) {
	p.BufferedResults.Set(float64(n))
}
