package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobTracker metrics
	JobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forgecore_jobs_active",
			Help: "Number of jobs currently tracked by status",
		},
		[]string{"status"},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_jobs_total",
			Help: "Total number of jobs observed by terminal status",
		},
		[]string{"status"},
	)

	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forgecore_job_duration_seconds",
			Help:    "Wall-clock duration of completed jobs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobNotificationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_job_notifications_published_total",
			Help: "Total number of job notifications published by event",
		},
		[]string{"event"},
	)

	// ArtifactStore metrics
	ArtifactsStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forgecore_artifacts_stored_total",
			Help: "Total number of artifacts accepted by the store",
		},
	)

	ArtifactsEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_artifacts_evicted_total",
			Help: "Total number of artifacts removed by reason",
		},
		[]string{"reason"},
	)

	ArtifactStoreSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forgecore_artifact_store_size_bytes",
			Help: "Current total size of stored artifacts in bytes",
		},
	)

	ArtifactStoreUsagePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forgecore_artifact_store_usage_percent",
			Help: "Current artifact store occupancy as a percent of its configured maximum",
		},
	)

	// QuotaManager metrics
	QuotaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_quota_checks_total",
			Help: "Total number of quota admission checks by resource and outcome",
		},
		[]string{"resource", "allowed"},
	)

	QuotaWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_quota_warnings_total",
			Help: "Total number of quota warning signals emitted by resource",
		},
		[]string{"resource"},
	)

	QuotaUsagePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forgecore_quota_usage_percent",
			Help: "Current quota usage as a percent of limit by entity and resource",
		},
		[]string{"entity_id", "resource"},
	)

	// FailoverManager metrics
	FailoverTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_failover_transitions_total",
			Help: "Total number of region failover state transitions",
		},
		[]string{"region", "state"},
	)

	FailoverRegionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forgecore_failover_region_state",
			Help: "Current failover state machine position for a region (1 = current state)",
		},
		[]string{"region", "state"},
	)

	FailoverHealthCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forgecore_failover_health_check_duration_seconds",
			Help:    "Time taken to process one region health check",
			Buckets: prometheus.DefBuckets,
		},
	)

	// IdleManager metrics
	IdleNodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forgecore_idle_nodes_total",
			Help: "Number of nodes tracked by idle/sleep state",
		},
		[]string{"state"},
	)

	IdleSleepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forgecore_idle_sleep_transitions_total",
			Help: "Total number of node sleep/wake transitions",
		},
		[]string{"transition"},
	)

	IdleEstimatedSavingsCents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forgecore_idle_estimated_savings_cents_total",
			Help: "Cumulative estimated savings in cents from sleeping idle nodes",
		},
	)
)

func init() {
	prometheus.MustRegister(JobsActive)
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(JobNotificationsPublished)

	prometheus.MustRegister(ArtifactsStoredTotal)
	prometheus.MustRegister(ArtifactsEvictedTotal)
	prometheus.MustRegister(ArtifactStoreSizeBytes)
	prometheus.MustRegister(ArtifactStoreUsagePercent)

	prometheus.MustRegister(QuotaChecksTotal)
	prometheus.MustRegister(QuotaWarningsTotal)
	prometheus.MustRegister(QuotaUsagePercent)

	prometheus.MustRegister(FailoverTransitionsTotal)
	prometheus.MustRegister(FailoverRegionState)
	prometheus.MustRegister(FailoverHealthCheckDuration)

	prometheus.MustRegister(IdleNodesTotal)
	prometheus.MustRegister(IdleSleepTransitionsTotal)
	prometheus.MustRegister(IdleEstimatedSavingsCents)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
