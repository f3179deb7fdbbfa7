// Package artifactstore implements a bounded, content-addressed blob
// store for job output: per-job count caps, a global size cap enforced
// by oldest-first eviction, and TTL-based expiry.
package artifactstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/idgen"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/metrics"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAge              = 7 * 24 * time.Hour
	DefaultMaxTotalSizeBytes   = 10 * 1024 * 1024 * 1024 // 10 GiB
	DefaultMaxPerJob           = 50
	DefaultMaxArtifactSizeByte = 500 * 1024 * 1024 // 500 MiB
	DefaultCleanupInterval     = 5 * time.Minute
)

// Config configures a Store.
type Config struct {
	MaxAge               time.Duration
	MaxTotalSizeBytes    int64
	MaxPerJob            int
	MaxArtifactSizeBytes int64
	Clock                clock.Clock
	IDGenerator          idgen.Generator
}

func (c *Config) withDefaults() {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.MaxTotalSizeBytes <= 0 {
		c.MaxTotalSizeBytes = DefaultMaxTotalSizeBytes
	}
	if c.MaxPerJob <= 0 {
		c.MaxPerJob = DefaultMaxPerJob
	}
	if c.MaxArtifactSizeBytes <= 0 {
		c.MaxArtifactSizeBytes = DefaultMaxArtifactSizeByte
	}
	if c.Clock == nil {
		c.Clock = clock.NewReal()
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.NewUUIDGenerator()
	}
}

// Store is the bounded ArtifactStore.
type Store struct {
	mu sync.Mutex

	artifacts map[string]*types.Artifact
	byJob     map[string][]string // jobID -> artifactIDs, insertion order
	order     []string            // artifactIDs ordered by storedAt, oldest first

	totalSize int64
	cfg       Config
	logger    zerolog.Logger

	stopCleanup chan struct{}
}

// New constructs an ArtifactStore with defaults applied for unset
// Config fields.
func New(cfg Config) *Store {
	cfg.withDefaults()
	return &Store{
		artifacts: make(map[string]*types.Artifact),
		byJob:     make(map[string][]string),
		cfg:       cfg,
		logger:    log.WithComponent("artifactstore"),
	}
}

// Store accepts content produced by jobID, evicting the oldest
// artifacts if necessary to make room. Returns nil if content exceeds
// the per-artifact cap, the job is already at its count cap, or
// eviction cannot free enough space.
func (s *Store) Store(jobID, name string, content []byte, contentType string, labels map[string]string) *types.ArtifactMetadata {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := int64(len(content))

	s.mu.Lock()
	defer s.mu.Unlock()

	if size > s.cfg.MaxArtifactSizeBytes {
		s.logger.Warn().Str("job_id", jobID).Int64("size_bytes", size).Msg("artifact exceeds max size")
		return nil
	}
	if len(s.byJob[jobID]) >= s.cfg.MaxPerJob {
		s.logger.Warn().Str("job_id", jobID).Msg("artifact rejected: per-job cap reached")
		return nil
	}

	if s.totalSize+size > s.cfg.MaxTotalSizeBytes {
		needed := s.totalSize + size - s.cfg.MaxTotalSizeBytes
		s.evictLocked(needed)
		if s.totalSize+size > s.cfg.MaxTotalSizeBytes {
			s.logger.Warn().Str("job_id", jobID).Msg("artifact rejected: capacity exhausted after eviction")
			return nil
		}
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])
	now := s.cfg.Clock.Now()

	artifact := &types.Artifact{
		ArtifactID:  s.cfg.IDGenerator.New("art"),
		JobID:       jobID,
		Name:        name,
		ContentType: contentType,
		SizeBytes:   size,
		StoredAt:    now,
		ExpiresAt:   now.Add(s.cfg.MaxAge),
		Checksum:    checksum,
		Labels:      labels,
		Content:     content,
	}

	s.artifacts[artifact.ArtifactID] = artifact
	s.byJob[jobID] = append(s.byJob[jobID], artifact.ArtifactID)
	s.order = append(s.order, artifact.ArtifactID)
	s.totalSize += size

	metrics.ArtifactsStoredTotal.Inc()
	s.updateGaugesLocked()

	meta := artifact.Metadata()
	return &meta
}

// evictLocked removes artifacts oldest-first until at least needed
// bytes have been freed. Caller must hold s.mu.
func (s *Store) evictLocked(needed int64) {
	var freed int64
	i := 0
	for i < len(s.order) && freed < needed {
		id := s.order[i]
		a, ok := s.artifacts[id]
		if !ok {
			i++
			continue
		}
		freed += a.SizeBytes
		s.removeLocked(id, "evicted")
		i = 0 // order shrank; restart scan from the new oldest
	}
}

// removeLocked deletes artifact id from every index. Caller must hold
// s.mu.
func (s *Store) removeLocked(artifactID, reason string) {
	a, ok := s.artifacts[artifactID]
	if !ok {
		return
	}
	delete(s.artifacts, artifactID)
	s.totalSize -= a.SizeBytes

	ids := s.byJob[a.JobID]
	for i, id := range ids {
		if id == artifactID {
			s.byJob[a.JobID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byJob[a.JobID]) == 0 {
		delete(s.byJob, a.JobID)
	}

	for i, id := range s.order {
		if id == artifactID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	metrics.ArtifactsEvictedTotal.WithLabelValues(reason).Inc()
}

// Get returns the artifact with its content, or nil if unknown.
func (s *Store) Get(artifactID string) *types.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[artifactID]
	if !ok {
		return nil
	}
	clone := *a
	return &clone
}

// ListByJob returns metadata for every live artifact of jobID, ordered
// by storedAt.
func (s *Store) ListByJob(jobID string) []types.ArtifactMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byJob[jobID]
	out := make([]types.ArtifactMetadata, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.artifacts[id]; ok {
			out = append(out, a.Metadata())
		}
	}
	return out
}

// Delete removes a single artifact. Returns false if unknown.
func (s *Store) Delete(artifactID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[artifactID]; !ok {
		return false
	}
	s.removeLocked(artifactID, "deleted")
	s.updateGaugesLocked()
	return true
}

// DeleteByJob removes every artifact belonging to jobID and returns the
// count removed.
func (s *Store) DeleteByJob(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append([]string(nil), s.byJob[jobID]...)
	for _, id := range ids {
		s.removeLocked(id, "deleted")
	}
	s.updateGaugesLocked()
	return len(ids)
}

// CleanupExpired removes every artifact whose ExpiresAt has passed and
// returns the count removed.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Clock.Now()
	var expired []string
	for id, a := range s.artifacts {
		if !a.ExpiresAt.IsZero() && !a.ExpiresAt.After(now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		s.removeLocked(id, "expired")
	}
	s.updateGaugesLocked()
	return len(expired)
}

// StartCleanup begins a background expiry loop at the given interval
// (0 uses DefaultCleanupInterval).
func (s *Store) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	s.mu.Lock()
	if s.stopCleanup != nil {
		s.mu.Unlock()
		return
	}
	s.stopCleanup = make(chan struct{})
	stop := s.stopCleanup
	s.mu.Unlock()

	ticker := s.cfg.Clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				n := s.CleanupExpired()
				if n > 0 {
					s.logger.Debug().Int("count", n).Msg("expired artifacts cleaned up")
				}
			case <-stop:
				return
			}
		}
	}()
}

// StopCleanup stops the background expiry loop started by StartCleanup.
func (s *Store) StopCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCleanup != nil {
		close(s.stopCleanup)
		s.stopCleanup = nil
	}
}

// GetStats summarises occupancy.
func (s *Store) GetStats() types.ArtifactStoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() types.ArtifactStoreStats {
	usage := 0
	if s.cfg.MaxTotalSizeBytes > 0 {
		usage = int((100*s.totalSize + s.cfg.MaxTotalSizeBytes/2) / s.cfg.MaxTotalSizeBytes)
	}
	return types.ArtifactStoreStats{
		TotalArtifacts: len(s.artifacts),
		TotalSizeBytes: s.totalSize,
		TotalJobs:      len(s.byJob),
		MaxSizeBytes:   s.cfg.MaxTotalSizeBytes,
		UsagePercent:   usage,
	}
}

func (s *Store) updateGaugesLocked() {
	stats := s.statsLocked()
	metrics.ArtifactStoreSizeBytes.Set(float64(stats.TotalSizeBytes))
	metrics.ArtifactStoreUsagePercent.Set(float64(stats.UsagePercent))
}
