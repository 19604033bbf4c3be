// Package metrics defines the Prometheus collectors for the video clipper
// backend. All metrics are registered at package load via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_clipper_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_clipper_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_uploads_total",
			Help: "Total number of upload requests",
		},
		[]string{"status"}, // "success", "rejected", "error"
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_clipper_upload_bytes_total",
			Help: "Total bytes accepted from uploads",
		},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_clipper_upload_duration_seconds",
			Help:    "Upload request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// Probe metrics
var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_probes_total",
			Help: "Total number of duration probes",
		},
		[]string{"status"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_clipper_probe_duration_seconds",
			Help:    "ffprobe invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Encode metrics
var (
	EncodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_encode_jobs_total",
			Help: "Total number of segment encode jobs",
		},
		[]string{"status"}, // "success", "error", "timeout"
	)

	EncodeJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_clipper_encode_job_duration_seconds",
			Help:    "Segment encode job duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	EncodeJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_clipper_encode_jobs_in_progress",
			Help: "Number of encoder subprocesses currently running",
		},
	)

	EncodeBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_clipper_encode_batches_total",
			Help: "Total number of encode batches dispatched",
		},
	)

	ClipsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_clipper_clips_generated_total",
			Help: "Total number of clips generated successfully",
		},
	)

	ClipRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_clip_requests_total",
			Help: "Total number of clip generation requests",
		},
		[]string{"status"}, // "success", "not_found", "error"
	)
)

// Thumbnail metrics
var (
	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_clipper_thumbnails_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)
)

// Registry metrics
var (
	RegistryCachedVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_clipper_registry_cached_videos",
			Help: "Number of videos currently held in the in-memory registry",
		},
	)
)

// InitializeMetrics pre-populates the label combinations so every metric is
// exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, status := range []string{"success", "rejected", "error"} {
		UploadsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "error"} {
		ProbesTotal.WithLabelValues(status)
		ThumbnailsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "error", "timeout"} {
		EncodeJobsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "not_found", "error"} {
		ClipRequestsTotal.WithLabelValues(status)
	}
}
