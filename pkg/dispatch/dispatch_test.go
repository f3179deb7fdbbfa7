package dispatch

import (
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/artifactstore"
	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/jobtracker"
	"github.com/cuemby/forgecore/pkg/quota"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(fc *clock.Fake) (*Dispatcher, *jobtracker.Tracker) {
	jobs := jobtracker.New(jobtracker.Config{Clock: fc})
	artifacts := artifactstore.New(artifactstore.Config{Clock: fc})
	quotas := quota.New(quota.Config{Clock: fc})
	return New(jobs, artifacts, quotas, Config{JobTimeout: time.Hour, Clock: fc}), jobs
}

func TestSubmitRejectedByHardQuota(t *testing.T) {
	fc := clock.NewFake(time.Now())
	d, _ := newDispatcher(fc)
	d.quotas.SetQuota(types.QuotaDefinition{EntityID: "user-1", EntityType: types.EntityUser, MaxConcurrentJobs: 0, HardLimit: true})

	job, result, err := d.Submit("job-1", "ci", "user-1", nil)
	assert.Nil(t, job)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
}

func TestSubmitAndCompleteStoresArtifact(t *testing.T) {
	fc := clock.NewFake(time.Now())
	d, jobs := newDispatcher(fc)

	job, result, err := d.Submit("job-1", "ci", "user-1", nil)
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, job)

	require.True(t, jobs.MarkStarted("job-1", "node-1"))

	meta, err := d.Complete("job-1", "done", &types.ResourceUsage{}, "out.log", "text/plain", []byte("hello"))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "out.log", meta.Name)

	assert.Nil(t, jobs.GetJob("job-1"))
	hist := jobs.GetHistory(1)
	require.Len(t, hist, 1)
	got := hist[0]
	assert.Equal(t, types.JobSuccess, got.Status)
}

func TestWatchdogTimesOutStaleJob(t *testing.T) {
	fc := clock.NewFake(time.Now())
	d, jobs := newDispatcher(fc)
	d.cfg.JobTimeout = time.Minute

	_, _, err := d.Submit("job-1", "ci", "user-1", nil)
	require.NoError(t, err)
	require.True(t, jobs.MarkStarted("job-1", "node-1"))

	fc.Advance(2 * time.Minute)
	d.sweep()

	assert.Nil(t, jobs.GetJob("job-1"))
	hist := jobs.GetHistory(1)
	require.Len(t, hist, 1)
	got := hist[0]
	assert.Equal(t, types.JobTimedOut, got.Status)
}
