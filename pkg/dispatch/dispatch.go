// Package dispatch coordinates admission through QuotaManager, job
// lifecycle through JobTracker, and artifact persistence through
// ArtifactStore, so a caller submitting a job never has to sequence
// those three components by hand.
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/forgecore/pkg/artifactstore"
	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/jobtracker"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/quota"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds how long a job may run before the
// watchdog marks it timed out.
const DefaultJobTimeout = 2 * time.Hour

// DefaultWatchdogInterval is how often the watchdog scans for jobs
// that exceeded their timeout.
const DefaultWatchdogInterval = 30 * time.Second

// Config configures a Dispatcher.
type Config struct {
	JobTimeout       time.Duration
	WatchdogInterval time.Duration
	Clock            clock.Clock
}

func (c *Config) withDefaults() {
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = DefaultWatchdogInterval
	}
	if c.Clock == nil {
		c.Clock = clock.NewReal()
	}
}

// Dispatcher glues QuotaManager admission to JobTracker lifecycle and
// ArtifactStore writes, and runs a watchdog that times out jobs
// running past their deadline.
type Dispatcher struct {
	jobs      *jobtracker.Tracker
	artifacts *artifactstore.Store
	quotas    *quota.Manager

	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	deadline map[string]time.Time
	stopCh   chan struct{}
}

// New constructs a Dispatcher bound to already-running components.
func New(jobs *jobtracker.Tracker, artifacts *artifactstore.Store, quotas *quota.Manager, cfg Config) *Dispatcher {
	cfg.withDefaults()
	return &Dispatcher{
		jobs:      jobs,
		artifacts: artifacts,
		quotas:    quotas,
		cfg:       cfg,
		logger:    log.WithComponent("dispatcher"),
		deadline:  make(map[string]time.Time),
	}
}

// Submit admits a job against the entity's quota (concurrent jobs and
// daily builds) and, if allowed, starts tracking it. It returns the
// quota decision that blocked submission, if any.
func (d *Dispatcher) Submit(jobID, jobType, entityID string, metadata map[string]string) (*types.Job, *types.QuotaCheckResult, error) {
	if res := d.quotas.CheckQuota(entityID, types.ResourceConcurrentJobs, 1); !res.Allowed {
		return nil, &res, fmt.Errorf("quota exceeded for %s: %s", entityID, res.Message)
	}
	if res := d.quotas.CheckQuota(entityID, types.ResourceBuilds, 1); !res.Allowed {
		return nil, &res, fmt.Errorf("quota exceeded for %s: %s", entityID, res.Message)
	}

	job := d.jobs.Track(jobID, jobType, entityID, metadata)
	if job == nil {
		return nil, nil, fmt.Errorf("job %s already tracked", jobID)
	}

	d.quotas.IncrementBuilds(entityID)

	d.mu.Lock()
	d.deadline[jobID] = d.cfg.Clock.Now().Add(d.cfg.JobTimeout)
	d.mu.Unlock()

	return job, nil, nil
}

// Complete marks a job successful and stores its output as an
// artifact in one step.
func (d *Dispatcher) Complete(jobID, output string, usage *types.ResourceUsage, artifactName, contentType string, artifactContent []byte) (*types.ArtifactMetadata, error) {
	if !d.jobs.MarkCompleted(jobID, output, usage) {
		return nil, fmt.Errorf("job %s not running", jobID)
	}
	d.clearDeadline(jobID)

	if artifactContent == nil {
		return nil, nil
	}
	meta := d.artifacts.Store(jobID, artifactName, artifactContent, contentType, nil)
	if meta == nil {
		return nil, fmt.Errorf("artifact rejected for job %s", jobID)
	}
	return meta, nil
}

func (d *Dispatcher) clearDeadline(jobID string) {
	d.mu.Lock()
	delete(d.deadline, jobID)
	d.mu.Unlock()
}

// StartWatchdog begins the background scan for jobs past their
// deadline.
func (d *Dispatcher) StartWatchdog() {
	d.mu.Lock()
	if d.stopCh != nil {
		d.mu.Unlock()
		return
	}
	d.stopCh = make(chan struct{})
	stop := d.stopCh
	d.mu.Unlock()

	ticker := d.cfg.Clock.NewTicker(d.cfg.WatchdogInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				d.sweep()
			case <-stop:
				return
			}
		}
	}()
}

// StopWatchdog stops the background scan.
func (d *Dispatcher) StopWatchdog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopCh != nil {
		close(d.stopCh)
		d.stopCh = nil
	}
}

func (d *Dispatcher) sweep() {
	now := d.cfg.Clock.Now()

	d.mu.Lock()
	var expired []string
	for jobID, dl := range d.deadline {
		if now.After(dl) {
			expired = append(expired, jobID)
		}
	}
	d.mu.Unlock()

	for _, jobID := range expired {
		if d.jobs.MarkTimedOut(jobID) {
			d.logger.Warn().Str("job_id", jobID).Msg("job exceeded timeout, marked timed out")
		}
		d.clearDeadline(jobID)
	}
}
