package metrics

import "time"

// ChainMetrics records instrumentation for patch-chain lifecycle operations.
// A nil ChainMetrics is valid; every method is a no-op against it.
type ChainMetrics interface {
	ObserveCommit(duration time.Duration, err error)
	ObserveDiscard()
	ObserveMerge(duration time.Duration, filesMerged int, err error)
	ObserveIntegrityFailure(reason string)
	RecordBytesHashed(n int64)
	ObserveOverlayResolution(depth int)
}

// NewChainMetrics creates a new Prometheus-backed ChainMetrics instance.
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewChainMetrics() ChainMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusChainMetrics()
}

var newPrometheusChainMetrics func() ChainMetrics

// RegisterChainMetricsConstructor registers the Prometheus chain metrics
// constructor. Called by pkg/metrics/prometheus/chain.go's init.
func RegisterChainMetricsConstructor(constructor func() ChainMetrics) {
	newPrometheusChainMetrics = constructor
}

func ObserveCommit(m ChainMetrics, duration time.Duration, err error) {
	if m != nil {
		m.ObserveCommit(duration, err)
	}
}

func ObserveDiscard(m ChainMetrics) {
	if m != nil {
		m.ObserveDiscard()
	}
}

func ObserveMerge(m ChainMetrics, duration time.Duration, filesMerged int, err error) {
	if m != nil {
		m.ObserveMerge(duration, filesMerged, err)
	}
}

func ObserveIntegrityFailure(m ChainMetrics, reason string) {
	if m != nil {
		m.ObserveIntegrityFailure(reason)
	}
}

func RecordBytesHashed(m ChainMetrics, n int64) {
	if m != nil {
		m.RecordBytesHashed(n)
	}
}

func ObserveOverlayResolution(m ChainMetrics, depth int) {
	if m != nil {
		m.ObserveOverlayResolution(depth)
	}
}
