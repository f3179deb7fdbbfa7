// Package health provides the HTTP, TCP, and Exec checkers used to
// probe individual nodes, plus RegionProbe, which aggregates per-node
// results into a types.HealthCheckResult for FailoverManager.
//
// Every checker implements Checker:
//
//	type Checker interface {
//		Check(ctx context.Context) Result
//		Type() CheckType
//	}
//
// Status tracks a hysteresis window (ConsecutiveFailures /
// ConsecutiveSuccesses) so a single flaky check doesn't flip a node's
// health. RegionProbe does not consult Status: on each tick it runs one
// check per node and folds those raw results into one region-level
// signal.
package health
