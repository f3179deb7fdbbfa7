package failover

import (
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFailoverThenFailbackScenario verifies scenario S1.
func TestFailoverThenFailbackScenario(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	fc := clock.NewFake(start)
	m := New(Config{Clock: fc})

	m.RegisterRegion(types.RegionConfig{
		RegionID:          "r1",
		BackupRegionID:    "r2",
		FailureThreshold:  3,
		FailbackDelayMs:   60000,
		RecoveryThreshold: 2,
		CheckIntervalMs:   1000,
	})

	check := func(t time.Duration, healthy bool) {
		fc.Advance(t - fc.Now().Sub(start))
		m.ProcessHealthCheck(types.HealthCheckResult{RegionID: "r1", Healthy: healthy})
	}

	check(1*time.Second, false)
	check(2*time.Second, false)
	check(3*time.Second, false)

	state, ok := m.GetState("r1")
	require.True(t, ok)
	assert.Equal(t, types.StateFailedOver, state.State)
	assert.Equal(t, "r2", m.GetActiveRegion("r1"))

	check(10*time.Second, true)
	state, _ = m.GetState("r1")
	assert.Equal(t, types.StateFailedOver, state.State)

	check(62*time.Second, true)
	state, _ = m.GetState("r1")
	assert.Equal(t, types.StateFailedOver, state.State, "failback delay of 60s not yet elapsed (59s since failover)")

	check(63*time.Second, true)
	state, _ = m.GetState("r1")
	assert.Equal(t, types.StateNormal, state.State)
	assert.Equal(t, "r1", m.GetActiveRegion("r1"))

	events := m.GetEvents("r1", 2)
	require.Len(t, events, 2)
	assert.Equal(t, types.StateNormal, events[0].State)
	assert.Equal(t, types.StateFailingBack, events[1].State)
}

func TestDegradedHysteresis(t *testing.T) {
	m := New(Config{Clock: clock.NewFake(time.Now())})
	m.RegisterRegion(types.RegionConfig{RegionID: "r1", BackupRegionID: "r2", FailureThreshold: 4, RecoveryThreshold: 1})

	m.ProcessHealthCheck(types.HealthCheckResult{RegionID: "r1", Healthy: false})
	state, _ := m.GetState("r1")
	assert.Equal(t, types.StateNormal, state.State)

	m.ProcessHealthCheck(types.HealthCheckResult{RegionID: "r1", Healthy: false})
	state, _ = m.GetState("r1")
	assert.Equal(t, types.StateDegraded, state.State)

	m.ProcessHealthCheck(types.HealthCheckResult{RegionID: "r1", Healthy: true})
	state, _ = m.GetState("r1")
	assert.Equal(t, types.StateNormal, state.State)
}

func TestForceFailoverAndFailback(t *testing.T) {
	m := New(Config{Clock: clock.NewFake(time.Now())})
	m.RegisterRegion(types.RegionConfig{RegionID: "r1", BackupRegionID: "r2", FailureThreshold: 3, RecoveryThreshold: 1})

	require.True(t, m.ForceFailover("r1", "manual drill"))
	assert.Equal(t, "r2", m.GetActiveRegion("r1"))

	require.True(t, m.ForceFailback("r1"))
	assert.Equal(t, "r1", m.GetActiveRegion("r1"))
}

func TestUnknownRegionIsNoop(t *testing.T) {
	m := New(Config{Clock: clock.NewFake(time.Now())})
	assert.Equal(t, "missing", m.GetActiveRegion("missing"))
	assert.False(t, m.ForceFailover("missing", ""))
	assert.Nil(t, m.GetEvents("missing", 0))
}
