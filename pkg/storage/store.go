package storage

import (
	"github.com/cuemby/forgecore/pkg/types"
)

// Store persists the durable state of each component: JobTracker's
// completed-job history, ArtifactStore's metadata, QuotaManager's
// quota definitions and usage snapshots, FailoverManager's per-region
// state, and IdleManager's per-node entries. On startup core reloads
// only the quota definitions and the idle node registrations from here;
// the other kinds are written but not read back into the components.
type Store interface {
	// Jobs (archived, terminal jobs only; active jobs live in memory)
	SaveJob(job *types.Job) error
	GetJob(jobID string) (*types.Job, error)
	ListJobs() ([]*types.Job, error)
	DeleteJob(jobID string) error

	// Artifacts
	SaveArtifactMetadata(meta *types.ArtifactMetadata) error
	GetArtifactMetadata(artifactID string) (*types.ArtifactMetadata, error)
	ListArtifactMetadata() ([]*types.ArtifactMetadata, error)
	DeleteArtifactMetadata(artifactID string) error

	// Quota definitions and usage snapshots
	SaveQuota(def *types.QuotaDefinition) error
	GetQuota(entityID string) (*types.QuotaDefinition, error)
	ListQuotas() ([]*types.QuotaDefinition, error)
	DeleteQuota(entityID string) error

	SaveQuotaUsage(snapshot *types.QuotaUsageSnapshot) error
	GetQuotaUsage(entityID string) (*types.QuotaUsageSnapshot, error)
	ListQuotaUsage() ([]*types.QuotaUsageSnapshot, error)

	// Region failover state
	SaveRegionState(state *types.RegionFailoverState) error
	GetRegionState(regionID string) (*types.RegionFailoverState, error)
	ListRegionStates() ([]*types.RegionFailoverState, error)

	// Idle node entries
	SaveIdleNode(entry *types.IdleNodeEntry) error
	GetIdleNode(nodeID string) (*types.IdleNodeEntry, error)
	ListIdleNodes() ([]*types.IdleNodeEntry, error)
	DeleteIdleNode(nodeID string) error

	// Utility
	Close() error
}
