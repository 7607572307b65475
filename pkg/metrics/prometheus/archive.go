package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/metador-go/ih5/pkg/metrics"
)

func init() {
	metrics.RegisterArchiveMetricsConstructor(newArchiveMetrics)
}

// archiveMetrics is the Prometheus implementation of metrics.ArchiveMetrics.
type archiveMetrics struct {
	uploadsTotal      *prometheus.CounterVec
	uploadDuration    *prometheus.HistogramVec
	uploadBytes       prometheus.Histogram
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func newArchiveMetrics() metrics.ArchiveMetrics {
	reg := metrics.GetRegistry()

	return &archiveMetrics{
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ih5_archive_uploads_total",
				Help: "Total number of container files uploaded to the S3 archive, by status",
			},
			[]string{"status"},
		),
		uploadDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ih5_archive_upload_duration_milliseconds",
				Help:    "Duration of a single archive upload in milliseconds",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
			},
			[]string{"status"},
		),
		uploadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ih5_archive_upload_bytes",
				Help:    "Distribution of object sizes uploaded to the archive",
				Buckets: []float64{4096, 65536, 1048576, 5242880, 10485760, 52428800, 104857600},
			},
		),
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ih5_archive_s3_operations_total",
				Help: "Total number of S3 API calls made by the archive hook, by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ih5_archive_s3_operation_duration_milliseconds",
				Help:    "Duration of S3 API calls made by the archive hook in milliseconds",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"operation"},
		),
	}
}

func (m *archiveMetrics) ObserveUpload(key string, duration time.Duration, bytes int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.uploadsTotal.WithLabelValues(status).Inc()
	m.uploadDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
	if bytes > 0 {
		m.uploadBytes.Observe(float64(bytes))
	}
}

func (m *archiveMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}
