package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/metador-go/ih5/pkg/metrics"
)

func init() {
	metrics.RegisterChainMetricsConstructor(newChainMetrics)
}

// chainMetrics is the Prometheus implementation of metrics.ChainMetrics.
type chainMetrics struct {
	commitsTotal        *prometheus.CounterVec
	commitDuration      prometheus.Histogram
	discardsTotal       prometheus.Counter
	mergesTotal         *prometheus.CounterVec
	mergeDuration       prometheus.Histogram
	mergeFilesMerged    prometheus.Histogram
	integrityFailures   *prometheus.CounterVec
	bytesHashed         prometheus.Counter
	overlayResolveDepth prometheus.Histogram
}

func newChainMetrics() metrics.ChainMetrics {
	reg := metrics.GetRegistry()

	return &chainMetrics{
		commitsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ih5_chain_commits_total",
				Help: "Total number of CommitPatch calls, by status",
			},
			[]string{"status"},
		),
		commitDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ih5_chain_commit_duration_milliseconds",
				Help:    "Duration of CommitPatch in milliseconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		discardsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ih5_chain_discards_total",
				Help: "Total number of DiscardPatch calls",
			},
		),
		mergesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ih5_chain_merges_total",
				Help: "Total number of MergeFiles calls, by status",
			},
			[]string{"status"},
		),
		mergeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ih5_chain_merge_duration_milliseconds",
				Help:    "Duration of MergeFiles in milliseconds",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
			},
		),
		mergeFilesMerged: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ih5_chain_merge_files_merged",
				Help:    "Number of patch-chain files collapsed by a single merge",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		integrityFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ih5_chain_integrity_failures_total",
				Help: "Total number of hashsum/chain integrity verification failures, by reason",
			},
			[]string{"reason"},
		),
		bytesHashed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ih5_chain_bytes_hashed_total",
				Help: "Total number of payload bytes run through the integrity hash algorithm",
			},
		),
		overlayResolveDepth: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ih5_overlay_resolution_depth",
				Help:    "Number of chain files walked (most-recent-first) to resolve an overlay path",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),
	}
}

func (m *chainMetrics) ObserveCommit(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.commitsTotal.WithLabelValues(status).Inc()
	m.commitDuration.Observe(float64(duration.Milliseconds()))
}

func (m *chainMetrics) ObserveDiscard() {
	m.discardsTotal.Inc()
}

func (m *chainMetrics) ObserveMerge(duration time.Duration, filesMerged int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.mergesTotal.WithLabelValues(status).Inc()
	m.mergeDuration.Observe(float64(duration.Milliseconds()))
	if filesMerged > 0 {
		m.mergeFilesMerged.Observe(float64(filesMerged))
	}
}

func (m *chainMetrics) ObserveIntegrityFailure(reason string) {
	m.integrityFailures.WithLabelValues(reason).Inc()
}

func (m *chainMetrics) RecordBytesHashed(n int64) {
	if n > 0 {
		m.bytesHashed.Add(float64(n))
	}
}

func (m *chainMetrics) ObserveOverlayResolution(depth int) {
	m.overlayResolveDepth.Observe(float64(depth))
}
