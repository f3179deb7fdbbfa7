package storage

import (
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStoreJobRoundtrip(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	job := &types.Job{JobID: "job-1", Type: "ci", Status: types.JobSuccess, CreatedAt: time.Now()}
	require.NoError(t, store.SaveJob(job))

	got, err := store.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, job.Type, got.Type)
	assert.Equal(t, job.Status, got.Status)

	all, err := store.ListJobs()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteJob("job-1"))
	_, err = store.GetJob("job-1")
	assert.Error(t, err)
}

func TestBoltStoreArtifactAndQuotaRoundtrip(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	meta := &types.ArtifactMetadata{ArtifactID: "art-1", JobID: "job-1", Name: "out.bin", SizeBytes: 10}
	require.NoError(t, store.SaveArtifactMetadata(meta))
	gotMeta, err := store.GetArtifactMetadata("art-1")
	require.NoError(t, err)
	assert.Equal(t, meta.Name, gotMeta.Name)

	def := &types.QuotaDefinition{QuotaID: "q-1", EntityID: "user-1", EntityType: types.EntityUser, MaxBuildsPerDay: 10}
	require.NoError(t, store.SaveQuota(def))
	gotDef, err := store.GetQuota("user-1")
	require.NoError(t, err)
	assert.Equal(t, def.MaxBuildsPerDay, gotDef.MaxBuildsPerDay)

	usage := &types.QuotaUsageSnapshot{EntityID: "user-1", BuildsToday: 3, DailyResetDate: "2026-07-30"}
	require.NoError(t, store.SaveQuotaUsage(usage))
	gotUsage, err := store.GetQuotaUsage("user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, gotUsage.BuildsToday)
}

func TestBoltStoreRegionAndIdleNodeRoundtrip(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	state := &types.RegionFailoverState{
		Config: types.RegionConfig{RegionID: "us-east", FailureThreshold: 3},
		State:  types.StateNormal,
	}
	require.NoError(t, store.SaveRegionState(state))
	gotState, err := store.GetRegionState("us-east")
	require.NoError(t, err)
	assert.Equal(t, types.StateNormal, gotState.State)

	node := &types.IdleNodeEntry{NodeID: "node-1", State: types.NodeActive, CostPerHourCents: 600}
	require.NoError(t, store.SaveIdleNode(node))
	gotNode, err := store.GetIdleNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), gotNode.CostPerHourCents)

	require.NoError(t, store.DeleteIdleNode("node-1"))
	_, err = store.GetIdleNode("node-1")
	assert.Error(t, err)
}
