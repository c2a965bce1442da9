// Package conf holds the plain configuration struct the plan subsystem is
// assembled from, grounded on the conf.Config parameter threaded through
// the teacher's api.NewAPIServer. No flag-parsing library is introduced
// here, matching the teacher's own unretrieved bootstrap layer.
package conf

import "time"

// Config configures one caller's plan stack: backoff budgets for the two
// independent retry phenomena (spec §9 "Two backoffs are deliberate"),
// where to dial the placement directory, and which metrics sink to use.
type Config struct {
	// RegionBackoffBase is the starting delay for RetryRegion's
	// exponential schedule.
	RegionBackoffBase time.Duration
	// RegionBackoffCap bounds RetryRegion's exponential schedule.
	RegionBackoffCap time.Duration
	// RegionBackoffMaxAttempts bounds the number of region retries.
	RegionBackoffMaxAttempts int
	// RegionBackoffJitter enables jitter on the region retry schedule.
	RegionBackoffJitter bool

	// LockBackoffDelay is the fixed delay ResolveLock sleeps between
	// contended-lock retries.
	LockBackoffDelay time.Duration
	// LockBackoffMaxAttempts bounds the number of contended-lock
	// retries. Zero means lock retry is disabled (spec §4.4 step 3).
	LockBackoffMaxAttempts int

	// PDCAddr is the dial target for the placement directory service.
	PDCAddr string

	// MetricsSink selects which planmetrics.Recorder the caller's plan
	// stack is assembled with.
	MetricsSink MetricsSink

	// KafkaMetricsTopic and KafkaBrokerProps configure the Kafka
	// recorder when MetricsSink is MetricsSinkKafka.
	KafkaMetricsTopic string
	KafkaBrokerProps  map[string]string
}

// MetricsSink selects the planmetrics.Recorder implementation a caller's
// plan stack observes through.
type MetricsSink int

const (
	MetricsSinkNone MetricsSink = iota
	MetricsSinkKafka
)

// DefaultConfig returns reasonable defaults: three region retries with
// jittered exponential backoff, no lock retry (callers that want it must
// opt in explicitly), and no metrics.
func DefaultConfig() Config {
	return Config{
		RegionBackoffBase:        10 * time.Millisecond,
		RegionBackoffCap:         2 * time.Second,
		RegionBackoffMaxAttempts: 3,
		RegionBackoffJitter:      true,

		LockBackoffDelay:       50 * time.Millisecond,
		LockBackoffMaxAttempts: 0,

		MetricsSink: MetricsSinkNone,
	}
}
