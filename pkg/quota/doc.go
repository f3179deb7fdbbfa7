// Package quota owns QuotaDefinition and QuotaUsageSnapshot: admission
// decisions are always a QuotaCheckResult, never a raised error, and
// buildsToday rolls over to 0 the first time a UTC calendar day is
// observed to have changed.
package quota
