package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector on Prometheus vectors.
type Collector struct {
	repositoryCalls   *prometheus.CounterVec
	repositoryLatency *prometheus.HistogramVec
	balanceMutations  *prometheus.CounterVec
	conflictRetries   *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		repositoryCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repository_calls_total",
				Help:      "Total number of account repository calls per backend, operation and outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		repositoryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "repository_call_duration_seconds",
				Help:      "Account repository call latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"backend", "operation"},
		),
		balanceMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_mutations_total",
				Help:      "Total number of deposit and withdrawal attempts per outcome",
			},
			[]string{"operation", "outcome"},
		),
		conflictRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflict_retries_total",
				Help:      "Total number of operations retried after a concurrent update conflict",
			},
			[]string{"operation"},
		),
	}
}

// Register registers all vectors with registerer.
func (c *Collector) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.repositoryCalls,
		c.repositoryLatency,
		c.balanceMutations,
		c.conflictRetries,
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) RecordRepositoryCall(backend string, operation string, outcome string, duration time.Duration) {
	c.repositoryCalls.WithLabelValues(backend, operation, outcome).Inc()
	c.repositoryLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

func (c *Collector) RecordBalanceMutation(operation string, outcome string) {
	c.balanceMutations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordConflictRetry(operation string) {
	c.conflictRetries.WithLabelValues(operation).Inc()
}
