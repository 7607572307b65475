package metrics

import "time"

// ArchiveMetrics records instrumentation for the S3 archive upload hook.
// A nil ArchiveMetrics is valid and every method is a no-op against it, so
// callers can pass NewArchiveMetrics() straight through regardless of
// whether metrics are enabled.
type ArchiveMetrics interface {
	ObserveUpload(key string, duration time.Duration, bytes int64, err error)
	ObserveOperation(operation string, duration time.Duration, err error)
}

// NewArchiveMetrics creates a new Prometheus-backed ArchiveMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). Callers
// should pass the nil interface value straight through (pkg/archive/s3's
// Mirror holds it as is), which results in zero overhead.
func NewArchiveMetrics() ArchiveMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusArchiveMetrics()
}

// newPrometheusArchiveMetrics is implemented in pkg/metrics/prometheus/archive.go.
// This indirection avoids an import cycle (prometheus imports metrics for the
// shared registry) while keeping the public constructor here.
var newPrometheusArchiveMetrics func() ArchiveMetrics

// RegisterArchiveMetricsConstructor registers the Prometheus archive metrics
// constructor. Called by pkg/metrics/prometheus/archive.go's init.
func RegisterArchiveMetricsConstructor(constructor func() ArchiveMetrics) {
	newPrometheusArchiveMetrics = constructor
}

// ObserveUpload is a nil-safe helper for recording a single object upload.
func ObserveUpload(m ArchiveMetrics, key string, duration time.Duration, bytes int64, err error) {
	if m != nil {
		m.ObserveUpload(key, duration, bytes, err)
	}
}

// ObserveOperation is a nil-safe helper for recording a generic S3 call.
func ObserveOperation(m ArchiveMetrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}
