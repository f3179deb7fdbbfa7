/*
Package types defines the data model shared by forgecore's five core
components.

Each type is owned by exactly one component and never mutated outside
it:

  - Job (JobTracker)
  - Artifact / ArtifactMetadata (ArtifactStore)
  - QuotaDefinition / QuotaUsageSnapshot (QuotaManager)
  - RegionFailoverState (FailoverManager)
  - IdleNodeEntry (IdleManager)

Cross-component references use opaque string identifiers (JobID,
ArtifactID, EntityID, RegionID, NodeID) rather than embedded pointers, so
components never share mutable state.
*/
package types
