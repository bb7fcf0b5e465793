package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "settlements_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	recomputeTotal   *prometheus.CounterVec
	recomputeLatency *prometheus.HistogramVec

	transitionsTotal *prometheus.CounterVec
	overridesTotal   *prometheus.CounterVec
	expenseWrites    *prometheus.CounterVec

	eventPublishTotal *prometheus.CounterVec
)

// Init registers the settlement metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		recomputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recompute_total",
				Help: "Total settlement recomputations by trigger and result",
			},
			[]string{"trigger", "result"},
		)
		recomputeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "recompute_latency_seconds",
				Help:    "Settlement recomputation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		)
		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transitions_total",
				Help: "Total status transition requests by target status and result",
			},
			[]string{"to", "result"},
		)
		overridesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "overrides_total",
				Help: "Total manual adjustments and overrides by kind and result",
			},
			[]string{"kind", "result"},
		)
		expenseWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "expense_writes_total",
				Help: "Total child record writes by category, operation and result",
			},
			[]string{"category", "op", "result"},
		)
		eventPublishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_publish_total",
				Help: "Total settlement events published by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			recomputeTotal,
			recomputeLatency,
			transitionsTotal,
			overridesTotal,
			expenseWrites,
			eventPublishTotal,
		)
	})
}

func ObserveRecompute(trigger string, started time.Time, err error) {
	if recomputeTotal == nil {
		return
	}
	recomputeTotal.WithLabelValues(trigger, result(err)).Inc()
	recomputeLatency.WithLabelValues(trigger).Observe(time.Since(started).Seconds())
}

func ObserveTransition(to string, err error) {
	if transitionsTotal == nil {
		return
	}
	transitionsTotal.WithLabelValues(to, result(err)).Inc()
}

func ObserveOverride(kind string, err error) {
	if overridesTotal == nil {
		return
	}
	overridesTotal.WithLabelValues(kind, result(err)).Inc()
}

func ObserveExpenseWrite(category, op string, err error) {
	if expenseWrites == nil {
		return
	}
	expenseWrites.WithLabelValues(category, op, result(err)).Inc()
}

func ObserveEventPublish(err error) {
	if eventPublishTotal == nil {
		return
	}
	eventPublishTotal.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
