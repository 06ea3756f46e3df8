package metrics

import "time"

// Collector receives ledger measurements. Implementations must be safe for
// concurrent use.
type Collector interface {
	// RecordRepositoryCall records one storage call; outcome is a domain.ErrorKind label.
	RecordRepositoryCall(backend string, operation string, outcome string, duration time.Duration)
	// RecordBalanceMutation records a deposit or withdrawal attempt and its outcome.
	RecordBalanceMutation(operation string, outcome string)
	// RecordConflictRetry records a read-modify-write retried after a version conflict.
	RecordConflictRetry(operation string)
}

// NoOpCollector discards every measurement.
type NoOpCollector struct{}

func (NoOpCollector) RecordRepositoryCall(string, string, string, time.Duration) {}
func (NoOpCollector) RecordBalanceMutation(string, string)                      {}
func (NoOpCollector) RecordConflictRetry(string)                                {}
