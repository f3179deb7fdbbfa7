package quota

import (
	"math"
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
)

// TestHardLimitScenario verifies scenario S3.
func TestHardLimitScenario(t *testing.T) {
	m := New(Config{})
	m.SetQuota(types.QuotaDefinition{
		QuotaID:                 "q1",
		EntityID:                "u",
		MaxConcurrentJobs:       2,
		HardLimit:               true,
		WarningThresholdPercent: 80,
	})
	m.UpdateUsage(types.QuotaUsageSnapshot{EntityID: "u", ConcurrentJobs: 2})

	result := m.CheckQuota("u", types.ResourceConcurrentJobs, 1)
	assert.False(t, result.Allowed)
	assert.Equal(t, 3.0, result.CurrentUsage)
	assert.Equal(t, 2.0, result.Limit)
	assert.Equal(t, 150, result.UsagePercent)
}

// TestDailyRollScenario verifies scenario S4.
func TestDailyRollScenario(t *testing.T) {
	fc := clock.NewFake(time.Date(2025, 1, 2, 0, 30, 0, 0, time.UTC))
	m := New(Config{Clock: fc})
	m.SetQuota(types.QuotaDefinition{EntityID: "u", MaxBuildsPerDay: 5})
	m.UpdateUsage(types.QuotaUsageSnapshot{
		EntityID:       "u",
		BuildsToday:    10,
		DailyResetDate: "2025-01-01",
	})

	count := m.IncrementBuilds("u")
	assert.Equal(t, 1, count)

	result := m.CheckQuota("u", types.ResourceBuilds, 0)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1.0, result.CurrentUsage)
}

func TestNoQuotaDefinedAllowsUnbounded(t *testing.T) {
	m := New(Config{})
	result := m.CheckQuota("nobody", types.ResourceCPU, 10)
	assert.True(t, result.Allowed)
	assert.True(t, math.IsInf(result.Limit, 1))
}

func TestSoftLimitAllowsOverage(t *testing.T) {
	m := New(Config{})
	m.SetQuota(types.QuotaDefinition{EntityID: "u", MaxRAMMb: 100, HardLimit: false})
	m.UpdateUsage(types.QuotaUsageSnapshot{EntityID: "u", RAMMbUsed: 90})

	result := m.CheckQuota("u", types.ResourceRAM, 50)
	assert.True(t, result.Allowed)
	assert.True(t, result.Warning)
}

func TestWarningSignalEmittedOnUpdateUsage(t *testing.T) {
	m := New(Config{})
	sub := m.Subscribe()
	defer m.Unsubscribe(sub)

	m.SetQuota(types.QuotaDefinition{EntityID: "u", MaxConcurrentJobs: 10, WarningThresholdPercent: 50})
	m.UpdateUsage(types.QuotaUsageSnapshot{EntityID: "u", ConcurrentJobs: 6})

	select {
	case sig := <-sub:
		assert.Equal(t, "warning", sig.Kind)
		assert.Equal(t, types.ResourceConcurrentJobs, sig.Result.ResourceType)
	case <-time.After(time.Second):
		t.Fatal("expected a warning signal")
	}
}
