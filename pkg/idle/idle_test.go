package idle

import (
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIdleSleepCycleScenario verifies scenario S5.
func TestIdleSleepCycleScenario(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	fc := clock.NewFake(start)
	m := New(Config{IdleTimeout: 300 * time.Second, MinSleepDuration: 60 * time.Second, Clock: fc})

	m.RegisterNode("n", 600, true)
	require.True(t, m.MarkIdle("n"))

	fc.Advance(400 * time.Second)
	slept := m.CheckIdleNodes()
	require.Equal(t, []string{"n"}, slept)

	node, ok := m.GetNode("n")
	require.True(t, ok)
	assert.Equal(t, types.NodeSleeping, node.State)

	fc.Advance(30 * time.Second)
	assert.False(t, m.Wake("n"), "wake before the 60s floor must fail")

	fc.Advance(90 * time.Second) // total 120s since sleep began
	assert.True(t, m.Wake("n"))

	node, _ = m.GetNode("n")
	assert.Equal(t, int64(20), node.EstimatedSavingsCents)
}

func TestMarkActiveFromAnyState(t *testing.T) {
	m := New(Config{Clock: clock.NewFake(time.Now())})
	m.RegisterNode("n", 600, true)
	require.True(t, m.MarkIdle("n"))
	require.True(t, m.MarkActive("n"))

	node, _ := m.GetNode("n")
	assert.Equal(t, types.NodeActive, node.State)
}

func TestSavingsMonotonicAcrossCycles(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0).UTC())
	m := New(Config{MinSleepDuration: 10 * time.Second, Clock: fc})
	m.RegisterNode("n", 3600, true) // 3600 cents/hour = 1 cent/sec

	require.True(t, m.MarkIdle("n"))
	require.True(t, m.Sleep("n"))
	fc.Advance(20 * time.Second)
	require.True(t, m.Wake("n"))

	node, _ := m.GetNode("n")
	first := node.EstimatedSavingsCents
	assert.Equal(t, int64(20), first)

	require.True(t, m.MarkActive("n")) // MarkActive is valid from any state
	require.True(t, m.MarkIdle("n"))
	require.True(t, m.Sleep("n"))
	fc.Advance(15 * time.Second)
	require.True(t, m.Wake("n"))

	node, _ = m.GetNode("n")
	assert.Greater(t, node.EstimatedSavingsCents, first)
}

func TestWakeRejectedWhenNotSleeping(t *testing.T) {
	m := New(Config{Clock: clock.NewFake(time.Now())})
	m.RegisterNode("n", 600, true)
	assert.False(t, m.Wake("n"))
}
