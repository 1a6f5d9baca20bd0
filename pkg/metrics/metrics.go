package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileflow_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileflow_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// kind is "upload" or "link"
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileflow_uploads_total",
			Help: "Artifacts registered, by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	CodeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fileflow_code_collisions_total",
			Help: "Generated codes that were already taken",
		},
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileflow_verifications_total",
			Help: "Access code checks, by result",
		},
		[]string{"result"},
	)

	OrphansRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fileflow_orphans_removed_total",
			Help: "Blobs removed by the orphan sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UploadsTotal,
		CodeCollisions,
		VerificationsTotal,
		OrphansRemoved,
	)
}

func RecordRequest(method, path, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, status).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
