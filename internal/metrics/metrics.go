package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oee_engine"

var (
	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculations processed, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	CalculationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_seconds",
			Help:      "Calculation latency in seconds, by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"operation"},
	)

	ValidationIssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_issues_total",
			Help:      "Validation issues surfaced in results, by severity.",
		},
		[]string{"severity"},
	)

	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Result cache lookups, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches the engine collectors to the registerer. Re-registering
// an already registered collector is tolerated so tests can share the
// default registry.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		CalculationsTotal,
		CalculationSeconds,
		ValidationIssuesTotal,
		CacheHitsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCalculation records one calculation's outcome and latency.
func ObserveCalculation(operation, outcome string, elapsed time.Duration) {
	CalculationsTotal.WithLabelValues(operation, outcome).Inc()
	CalculationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}
