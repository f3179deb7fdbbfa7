/*
Package metrics exposes forgecore's Prometheus instrumentation and
HTTP health/readiness/liveness handlers.

Each of the five core components registers its own metrics in this
package's init():

  - JobTracker: forgecore_jobs_active, forgecore_jobs_total,
    forgecore_job_duration_seconds, forgecore_job_notifications_published_total
  - ArtifactStore: forgecore_artifacts_stored_total,
    forgecore_artifacts_evicted_total, forgecore_artifact_store_size_bytes,
    forgecore_artifact_store_usage_percent
  - QuotaManager: forgecore_quota_checks_total, forgecore_quota_warnings_total,
    forgecore_quota_usage_percent
  - FailoverManager: forgecore_failover_transitions_total,
    forgecore_failover_region_state, forgecore_failover_health_check_duration_seconds
  - IdleManager: forgecore_idle_nodes_total, forgecore_idle_sleep_transitions_total,
    forgecore_idle_estimated_savings_cents_total

Handler exposes the registry over HTTP for Prometheus scraping. Timer is
a small helper for recording histogram observations around a block of
code.

HealthChecker (health.go) tracks per-component readiness independently
of Prometheus, backing the /health, /ready, and /live HTTP endpoints:
JobTracker, ArtifactStore, and QuotaManager are treated as the critical
set for readiness, since FailoverManager and IdleManager degrade
gracefully without blocking job admission.
*/
package metrics
