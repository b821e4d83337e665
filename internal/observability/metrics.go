package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportEvents counts pet report lifecycle transitions by event and report type.
	ReportEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purpaws_report_events_total",
		Help: "Pet report lifecycle events",
	}, []string{"event", "report_type"})

	// AdoptionConversions counts report to listing conversions by outcome.
	AdoptionConversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purpaws_adoption_conversions_total",
		Help: "Found report to adoption listing conversions by outcome",
	}, []string{"outcome"})

	// NotificationsCreated counts notifications actually inserted (duplicates excluded).
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purpaws_notifications_created_total",
		Help: "Notifications inserted",
	})

	// AdoptionJobItems counts items handled by the adoption job by mode and result.
	AdoptionJobItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purpaws_adoption_job_items_total",
		Help: "Eligible reports processed by the adoption job",
	}, []string{"mode", "result"})

	// AdoptionJobDuration records how long each job run takes.
	AdoptionJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purpaws_adoption_job_duration_seconds",
		Help:    "Adoption job run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// NotificationStreams is the number of open notification websocket connections.
	NotificationStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "purpaws_notification_streams",
		Help: "Open notification websocket connections",
	})

	// NotificationStreamDrops counts websocket frames dropped because a client could not keep up.
	NotificationStreamDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purpaws_notification_stream_drops_total",
		Help: "Notification websocket frames dropped",
	}, []string{"reason"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purpaws_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a func that records latency for operation on table when called.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
