// Package types defines the core data structures shared by every
// forgecore component: jobs, artifacts, quotas, region failover state,
// and idle node bookkeeping.
package types

import "time"

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSuccess   JobStatus = "success"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
	JobTimedOut  JobStatus = "timedOut"
)

// Terminal reports whether the status is one from which no further
// transition is permitted.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSuccess, JobFailed, JobCancelled, JobTimedOut:
		return true
	default:
		return false
	}
}

// ResourceUsage captures the resource footprint of a job.
type ResourceUsage struct {
	CPUTimeMs       int64
	PeakMemoryBytes int64
	OutputSizeBytes int64
}

// Job is the authoritative record of a single build/CI job's lifecycle,
// owned exclusively by JobTracker.
type Job struct {
	JobID         string
	Type          string
	Status        JobStatus
	Progress      int
	NodeID        string
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	DurationMs    int64
	ResourceUsage ResourceUsage
	Output        string
	ExitCode      int
	UserID        string
	Metadata      map[string]string
}

// Clone returns a deep-enough copy of the job for safe hand-off to
// callers; slices/maps are copied so callers cannot mutate tracker state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.Metadata != nil {
		clone.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// NotificationEvent names a JobTracker lifecycle transition.
type NotificationEvent string

const (
	NotifyStarted   NotificationEvent = "started"
	NotifyCompleted NotificationEvent = "completed"
	NotifyFailed    NotificationEvent = "failed"
	NotifyProgress  NotificationEvent = "progress"
	NotifyCancelled NotificationEvent = "cancelled"
)

// Notification is published by JobTracker for every lifecycle transition.
type Notification struct {
	JobID     string
	Event     NotificationEvent
	Timestamp time.Time
	Message   string
}

// JobStats summarises JobTracker's current and historical state.
type JobStats struct {
	ActiveJobs    int
	CompletedJobs int
	FailedJobs    int
	AvgDurationMs int64
}

// Artifact is an immutable, content-addressed blob produced by a job,
// owned exclusively by ArtifactStore.
type Artifact struct {
	ArtifactID  string
	JobID       string
	Name        string
	ContentType string
	SizeBytes   int64
	StoredAt    time.Time
	ExpiresAt   time.Time
	Checksum    string
	Labels      map[string]string
	Content     []byte
}

// ArtifactMetadata is the artifact's descriptor without its content,
// returned to callers so they cannot mutate stored bytes by reference.
type ArtifactMetadata struct {
	ArtifactID  string
	JobID       string
	Name        string
	ContentType string
	SizeBytes   int64
	StoredAt    time.Time
	ExpiresAt   time.Time
	Checksum    string
	Labels      map[string]string
}

// Metadata returns the descriptor for the artifact, without its content.
func (a *Artifact) Metadata() ArtifactMetadata {
	var labels map[string]string
	if a.Labels != nil {
		labels = make(map[string]string, len(a.Labels))
		for k, v := range a.Labels {
			labels[k] = v
		}
	}
	return ArtifactMetadata{
		ArtifactID:  a.ArtifactID,
		JobID:       a.JobID,
		Name:        a.Name,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		StoredAt:    a.StoredAt,
		ExpiresAt:   a.ExpiresAt,
		Checksum:    a.Checksum,
		Labels:      labels,
	}
}

// ArtifactStoreStats summarises ArtifactStore occupancy.
type ArtifactStoreStats struct {
	TotalArtifacts int
	TotalSizeBytes int64
	TotalJobs      int
	MaxSizeBytes   int64
	UsagePercent   int
}

// EntityType names the kind of principal a quota is attached to.
type EntityType string

const (
	EntityUser EntityType = "user"
	EntityOrg  EntityType = "org"
	EntityPlan EntityType = "plan"
)

// QuotaDefinition is an administrator-managed resource ceiling for one
// entity, owned by QuotaManager.
type QuotaDefinition struct {
	QuotaID                 string
	EntityID                string
	EntityType              EntityType
	MaxCPUMinutes           float64
	MaxRAMMb                int64
	MaxStorageMb            int64
	MaxConcurrentJobs       int
	MaxBuildsPerDay         int
	WarningThresholdPercent int
	HardLimit               bool
}

// QuotaUsageSnapshot is the most recently reported cumulative usage for
// an entity, owned by QuotaManager.
type QuotaUsageSnapshot struct {
	EntityID       string
	CPUMinutesUsed float64
	RAMMbUsed      int64
	StorageMbUsed  int64
	ConcurrentJobs int
	BuildsToday    int
	DailyResetDate string // YYYY-MM-DD, UTC
}

// ResourceType names the dimension a quota check is evaluated against.
type ResourceType string

const (
	ResourceCPU            ResourceType = "cpu"
	ResourceRAM            ResourceType = "ram"
	ResourceStorage        ResourceType = "storage"
	ResourceConcurrentJobs ResourceType = "concurrent-jobs"
	ResourceBuilds         ResourceType = "builds"
)

// QuotaCheckResult is the outcome of an admission check, never a raised
// error.
type QuotaCheckResult struct {
	Allowed      bool
	QuotaID      string
	ResourceType ResourceType
	CurrentUsage float64
	Limit        float64
	UsagePercent int
	Warning      bool
	Message      string
}

// FailoverState is a region's position in the failover state machine.
type FailoverState string

const (
	StateNormal      FailoverState = "Normal"
	StateDegraded    FailoverState = "Degraded"
	StateFailingOver FailoverState = "FailingOver"
	StateFailedOver  FailoverState = "FailedOver"
	StateFailingBack FailoverState = "FailingBack"
)

// RegionConfig parameterises a region's hysteresis thresholds.
type RegionConfig struct {
	RegionID          string
	BackupRegionID    string
	FailureThreshold  int
	CheckIntervalMs   int64
	FailbackDelayMs   int64
	RecoveryThreshold int
}

// FailoverEvent records a single state transition for a region.
type FailoverEvent struct {
	FromRegion string
	ToRegion   string
	State      FailoverState
	Reason     string
	Timestamp  time.Time
}

// RegionFailoverState is the full per-region failover record, owned by
// FailoverManager.
type RegionFailoverState struct {
	Config               RegionConfig
	State                FailoverState
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	FailedOverAt         time.Time
	LastCheckAt          time.Time
	Events               []FailoverEvent
}

// HealthCheckResult is an ephemeral health signal fed into
// FailoverManager.processHealthCheck.
type HealthCheckResult struct {
	RegionID       string
	Healthy        bool
	ResponseTimeMs int64
	HealthyNodes   int
	TotalNodes     int
	CheckedAt      time.Time
}

// NodeState is a node's position in the idle/sleep state machine.
type NodeState string

const (
	NodeActive   NodeState = "Active"
	NodeIdle     NodeState = "Idle"
	NodeSleeping NodeState = "Sleeping"
	NodeWaking   NodeState = "Waking"
)

// IdleNodeEntry is a node's idle/sleep bookkeeping record, owned by
// IdleManager.
type IdleNodeEntry struct {
	NodeID                string
	State                 NodeState
	IdleSince             time.Time
	SleepingSince         time.Time
	TotalSleepTimeMs      int64
	CostPerHourCents      int64
	EstimatedSavingsCents int64
	AutoSleepEnabled      bool
}
