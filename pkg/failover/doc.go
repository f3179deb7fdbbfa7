/*
Package failover owns RegionFailoverState: a per-region health state
machine (Normal -> Degraded -> FailingOver -> FailedOver -> FailingBack
-> Normal) driven by a stream of HealthCheckResult values.

Hysteresis uses two thresholds derived from one config value: Degraded
triggers at ceil(failureThreshold/2) consecutive failures, FailedOver at
failureThreshold. Recovery requires both failbackDelayMs to have
elapsed since FailedOverAt and recoveryThreshold consecutive successes,
so a region cannot flap back before its cooldown floor regardless of
how many healthy checks arrive in between.
*/
package failover
