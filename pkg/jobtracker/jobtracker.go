// Package jobtracker implements the authoritative lifecycle record for
// every build/CI job: creation, progress, resource accounting, and
// archival on terminal transition.
package jobtracker

import (
	"sync"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/events"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/metrics"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultMaxHistory bounds the archived-job FIFO buffer.
const DefaultMaxHistory = 10000

// Config configures a Tracker.
type Config struct {
	MaxHistory int
	Clock      clock.Clock
}

// Tracker is the authoritative JobTracker. It owns every Job and
// publishes an ordered Notification per lifecycle transition.
type Tracker struct {
	mu sync.Mutex

	active  map[string]*types.Job
	history []*types.Job // FIFO, oldest first
	byUser  map[string][]string

	maxHistory int
	clock      clock.Clock
	logger     zerolog.Logger
	broker     *events.Broker[types.Notification]
}

// New constructs a Tracker and starts its notification broker.
func New(cfg Config) *Tracker {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	t := &Tracker{
		active:     make(map[string]*types.Job),
		byUser:     make(map[string][]string),
		maxHistory: maxHistory,
		clock:      clk,
		logger:     log.WithComponent("jobtracker"),
		broker:     events.NewBroker[types.Notification](100),
	}
	t.broker.Start()
	return t
}

// Subscribe returns a channel of Notifications, in per-job transition
// order.
func (t *Tracker) Subscribe() events.Subscriber[types.Notification] {
	return t.broker.Subscribe()
}

// Unsubscribe removes a Notification subscription.
func (t *Tracker) Unsubscribe(sub events.Subscriber[types.Notification]) {
	t.broker.Unsubscribe(sub)
}

// Stop stops the notification broker.
func (t *Tracker) Stop() {
	t.broker.Stop()
}

// Track inserts a new pending job. Returns nil if jobId already exists.
func (t *Tracker) Track(jobID, jobType, userID string, metadata map[string]string) *types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[jobID]; exists {
		t.logger.Warn().Str("job_id", jobID).Msg("duplicate job id rejected")
		return nil
	}

	job := &types.Job{
		JobID:     jobID,
		Type:      jobType,
		Status:    types.JobPending,
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: t.clock.Now(),
	}
	t.active[jobID] = job
	if userID != "" {
		t.byUser[userID] = append(t.byUser[userID], jobID)
	}
	metrics.JobsActive.WithLabelValues(string(types.JobPending)).Inc()
	return job.Clone()
}

// MarkStarted transitions pending|queued -> running.
func (t *Tracker) MarkStarted(jobID, nodeID string) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || (job.Status != types.JobPending && job.Status != types.JobQueued) {
		t.mu.Unlock()
		return false
	}
	metrics.JobsActive.WithLabelValues(string(job.Status)).Dec()
	job.Status = types.JobRunning
	job.NodeID = nodeID
	job.StartedAt = t.clock.Now()
	metrics.JobsActive.WithLabelValues(string(types.JobRunning)).Inc()
	t.mu.Unlock()

	t.publish(jobID, types.NotifyStarted, "job started")
	return true
}

// UpdateProgress clamps progress to [0,100]; no-op once terminal.
func (t *Tracker) UpdateProgress(jobID string, progress int) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || job.Status.Terminal() {
		t.mu.Unlock()
		return false
	}
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	job.Progress = progress
	t.mu.Unlock()

	t.publish(jobID, types.NotifyProgress, "progress updated")
	return true
}

// MarkCompleted transitions running -> success and archives the job.
func (t *Tracker) MarkCompleted(jobID, output string, usage *types.ResourceUsage) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || job.Status != types.JobRunning {
		t.mu.Unlock()
		return false
	}
	previousStatus := job.Status
	now := t.clock.Now()
	job.Status = types.JobSuccess
	job.Progress = 100
	job.CompletedAt = now
	job.ExitCode = 0
	job.Output = output
	if usage != nil {
		job.ResourceUsage = *usage
	}
	if output != "" {
		job.ResourceUsage.OutputSizeBytes = int64(len(output))
	}
	if !job.StartedAt.IsZero() {
		job.DurationMs = now.Sub(job.StartedAt).Milliseconds()
	}
	t.archiveLocked(job, previousStatus)
	t.mu.Unlock()

	t.publish(jobID, types.NotifyCompleted, "job completed")
	return true
}

// MarkFailed transitions pending|queued|running -> failed and archives.
func (t *Tracker) MarkFailed(jobID, errMsg string, exitCode int) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || job.Status.Terminal() {
		t.mu.Unlock()
		return false
	}
	previousStatus := job.Status
	now := t.clock.Now()
	job.Status = types.JobFailed
	job.CompletedAt = now
	job.ExitCode = exitCode
	job.Output = errMsg
	if !job.StartedAt.IsZero() {
		job.DurationMs = now.Sub(job.StartedAt).Milliseconds()
	}
	t.archiveLocked(job, previousStatus)
	t.mu.Unlock()

	t.publish(jobID, types.NotifyFailed, errMsg)
	return true
}

// MarkCancelled transitions any non-terminal status -> cancelled.
func (t *Tracker) MarkCancelled(jobID string) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || job.Status.Terminal() {
		t.mu.Unlock()
		return false
	}
	previousStatus := job.Status
	now := t.clock.Now()
	job.Status = types.JobCancelled
	job.CompletedAt = now
	if !job.StartedAt.IsZero() {
		job.DurationMs = now.Sub(job.StartedAt).Milliseconds()
	}
	t.archiveLocked(job, previousStatus)
	t.mu.Unlock()

	t.publish(jobID, types.NotifyCancelled, "job cancelled")
	return true
}

// MarkTimedOut transitions pending|queued|running -> timedOut and archives.
func (t *Tracker) MarkTimedOut(jobID string) bool {
	t.mu.Lock()
	job, ok := t.active[jobID]
	if !ok || job.Status.Terminal() {
		t.mu.Unlock()
		return false
	}
	previousStatus := job.Status
	now := t.clock.Now()
	job.Status = types.JobTimedOut
	job.CompletedAt = now
	if !job.StartedAt.IsZero() {
		job.DurationMs = now.Sub(job.StartedAt).Milliseconds()
	}
	t.archiveLocked(job, previousStatus)
	t.mu.Unlock()

	t.publish(jobID, types.NotifyFailed, "job timed out")
	return true
}

// archiveLocked moves job from active into the bounded history buffer.
// Caller must hold t.mu and pass the status job held before this
// transition, so the right active-gauge bucket is decremented.
func (t *Tracker) archiveLocked(job *types.Job, previousStatus types.JobStatus) {
	delete(t.active, job.JobID)
	metrics.JobsActive.WithLabelValues(string(previousStatus)).Dec()
	metrics.JobsTotal.WithLabelValues(string(job.Status)).Inc()
	if !job.StartedAt.IsZero() && job.Status == types.JobSuccess {
		metrics.JobDuration.Observe(float64(job.DurationMs) / 1000.0)
	}

	t.history = append(t.history, job)
	if len(t.history) > t.maxHistory {
		t.history = t.history[len(t.history)-t.maxHistory:]
	}
}

func (t *Tracker) publish(jobID string, event types.NotificationEvent, message string) {
	metrics.JobNotificationsPublished.WithLabelValues(string(event)).Inc()
	t.broker.Publish(types.Notification{
		JobID:     jobID,
		Event:     event,
		Timestamp: t.clock.Now(),
		Message:   message,
	})
}

// GetJob returns a clone of the active job, or nil if unknown or
// already archived.
func (t *Tracker) GetJob(jobID string) *types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[jobID].Clone()
}

// GetActiveJobs returns clones of every pending|queued|running job.
func (t *Tracker) GetActiveJobs() []*types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*types.Job, 0, len(t.active))
	for _, job := range t.active {
		out = append(out, job.Clone())
	}
	return out
}

// GetHistory returns up to limit of the most recently archived jobs,
// most recent first. limit <= 0 returns the full buffer.
func (t *Tracker) GetHistory(limit int) []*types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*types.Job, n)
	for i := 0; i < n; i++ {
		out[i] = t.history[len(t.history)-1-i].Clone()
	}
	return out
}

// GetJobsByUser returns clones of every active job tracked for userID.
func (t *Tracker) GetJobsByUser(userID string) []*types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := t.byUser[userID]
	out := make([]*types.Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := t.active[id]; ok {
			out = append(out, job.Clone())
		}
	}
	return out
}

// GetStats summarises active and archived jobs.
func (t *Tracker) GetStats() types.JobStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats types.JobStats
	for _, job := range t.active {
		stats.ActiveJobs++
		_ = job
	}

	var totalDuration int64
	var successCount int
	for _, job := range t.history {
		switch job.Status {
		case types.JobSuccess:
			stats.CompletedJobs++
			totalDuration += job.DurationMs
			successCount++
		case types.JobFailed, types.JobCancelled, types.JobTimedOut:
			stats.FailedJobs++
		}
	}
	if successCount > 0 {
		stats.AvgDurationMs = (totalDuration + int64(successCount)/2) / int64(successCount)
	}
	return stats
}
