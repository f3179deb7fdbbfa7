package jobtracker

import (
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(fc *clock.Fake) *Tracker {
	return New(Config{Clock: fc})
}

// TestJobLifecycleScenario verifies scenario S6 from the specification:
// track -> markStarted -> 3x updateProgress -> markCompleted, checking
// archival, progress, duration, and output size.
func TestJobLifecycleScenario(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	fc := clock.NewFake(start)
	tr := newTestTracker(fc)

	sub := tr.Subscribe()
	defer tr.Unsubscribe(sub)

	job := tr.Track("j", "build", "", nil)
	require.NotNil(t, job)
	assert.Equal(t, types.JobPending, job.Status)

	fc.Advance(1000 * time.Millisecond)
	require.True(t, tr.MarkStarted("j", "node1"))

	for _, p := range []int{25, 50, 75} {
		require.True(t, tr.UpdateProgress("j", p))
	}

	fc.Advance(3000 * time.Millisecond)
	require.True(t, tr.MarkCompleted("j", "ok", nil))

	assert.Nil(t, tr.GetJob("j"))

	hist := tr.GetHistory(1)
	require.Len(t, hist, 1)
	archived := hist[0]
	assert.Equal(t, types.JobSuccess, archived.Status)
	assert.Equal(t, 100, archived.Progress)
	assert.Equal(t, int64(3000), archived.DurationMs)
	assert.Equal(t, int64(2), archived.ResourceUsage.OutputSizeBytes)

	wantEvents := []types.NotificationEvent{
		types.NotifyStarted, types.NotifyProgress, types.NotifyProgress,
		types.NotifyProgress, types.NotifyCompleted,
	}
	for _, want := range wantEvents {
		select {
		case n := <-sub:
			assert.Equal(t, want, n.Event)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notification %s", want)
		}
	}
}

func TestDuplicateJobRejected(t *testing.T) {
	tr := newTestTracker(clock.NewFake(time.Now()))
	require.NotNil(t, tr.Track("j", "build", "", nil))
	assert.Nil(t, tr.Track("j", "build", "", nil))
}

func TestTerminalJobIsReadOnly(t *testing.T) {
	tr := newTestTracker(clock.NewFake(time.Now()))
	tr.Track("j", "build", "", nil)
	tr.MarkStarted("j", "n1")
	require.True(t, tr.MarkFailed("j", "boom", 1))

	assert.False(t, tr.MarkStarted("j", "n1"))
	assert.False(t, tr.UpdateProgress("j", 50))
	assert.False(t, tr.MarkCompleted("j", "x", nil))
	assert.False(t, tr.MarkCancelled("j"))
}

func TestMarkStartedRejectsUnknownOrRunning(t *testing.T) {
	tr := newTestTracker(clock.NewFake(time.Now()))
	assert.False(t, tr.MarkStarted("missing", "n1"))

	tr.Track("j", "build", "", nil)
	require.True(t, tr.MarkStarted("j", "n1"))
	assert.False(t, tr.MarkStarted("j", "n1"))
}

func TestHistoryBoundedByMaxHistory(t *testing.T) {
	tr := New(Config{Clock: clock.NewFake(time.Now()), MaxHistory: 2})
	for _, id := range []string{"a", "b", "c"} {
		tr.Track(id, "build", "", nil)
		tr.MarkStarted(id, "n1")
		tr.MarkCompleted(id, "", nil)
	}
	hist := tr.GetHistory(0)
	require.Len(t, hist, 2)
	assert.Equal(t, "c", hist[0].JobID)
	assert.Equal(t, "b", hist[1].JobID)
}

func TestGetStatsAveragesSuccessDurations(t *testing.T) {
	fc := clock.NewFake(time.Now())
	tr := newTestTracker(fc)

	tr.Track("a", "build", "", nil)
	tr.MarkStarted("a", "n1")
	fc.Advance(2 * time.Second)
	tr.MarkCompleted("a", "", nil)

	tr.Track("b", "build", "", nil)
	tr.MarkStarted("b", "n1")
	fc.Advance(4 * time.Second)
	tr.MarkCompleted("b", "", nil)

	tr.Track("c", "build", "", nil)
	tr.MarkStarted("c", "n1")
	tr.MarkFailed("c", "boom", 1)

	stats := tr.GetStats()
	assert.Equal(t, 2, stats.CompletedJobs)
	assert.Equal(t, 1, stats.FailedJobs)
	assert.Equal(t, int64(3000), stats.AvgDurationMs)
}

func TestGetJobsByUser(t *testing.T) {
	tr := newTestTracker(clock.NewFake(time.Now()))
	tr.Track("a", "build", "alice", nil)
	tr.Track("b", "build", "bob", nil)
	tr.Track("c", "build", "alice", nil)

	jobs := tr.GetJobsByUser("alice")
	require.Len(t, jobs, 2)
}
