package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/cuemby/forgecore/pkg/registry"
	"github.com/rs/zerolog"
)

// RegionProbe is a reference HealthProbe implementation: it runs a
// Checker against every live node in a region (via NodeRegistry) on
// config.CheckIntervalMs cadence and reports the aggregate as a
// types.HealthCheckResult. A region is healthy when any node responds
// healthy, matching a cluster that routes traffic to whichever nodes
// are up. A region with no registered nodes is reported unhealthy
// rather than defaulting to healthy; TotalNodes == 0 on the result
// distinguishes "lost every node" from "never configured" for a
// caller inspecting the result.
type RegionProbe struct {
	regionID    string
	registry    registry.NodeRegistry
	newChecker  func(nodeID string) Checker
	checkEvery  time.Duration
	checkTimeout time.Duration
	clock       clock.Clock
	logger      zerolog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewRegionProbe constructs a probe for one region. newChecker builds a
// per-node Checker (typically an HTTPChecker against that node's
// health endpoint).
func NewRegionProbe(regionID string, reg registry.NodeRegistry, newChecker func(nodeID string) Checker, checkEvery time.Duration, clk clock.Clock) *RegionProbe {
	if clk == nil {
		clk = clock.NewReal()
	}
	if checkEvery <= 0 {
		checkEvery = 30 * time.Second
	}
	return &RegionProbe{
		regionID:     regionID,
		registry:     reg,
		newChecker:   newChecker,
		checkEvery:   checkEvery,
		checkTimeout: 10 * time.Second,
		clock:        clk,
		logger:       log.WithComponent("health.regionprobe"),
	}
}

// Probe runs one round of checks against every live node in the region
// and returns the aggregate result.
func (p *RegionProbe) Probe(ctx context.Context) types.HealthCheckResult {
	start := p.clock.Now()
	nodes := p.registry.ListNodes(p.regionID, "")

	var healthyCount int
	for _, node := range nodes {
		checker := p.newChecker(node.NodeID)
		checkCtx, cancel := context.WithTimeout(ctx, p.checkTimeout)
		result := checker.Check(checkCtx)
		cancel()
		if result.Healthy {
			healthyCount++
		}
	}

	return types.HealthCheckResult{
		RegionID:       p.regionID,
		Healthy:        healthyCount > 0,
		ResponseTimeMs: p.clock.Now().Sub(start).Milliseconds(),
		HealthyNodes:   healthyCount,
		TotalNodes:     len(nodes),
		CheckedAt:      p.clock.Now(),
	}
}

// Start runs Probe on checkEvery cadence, pushing each result to sink,
// until Stop is called.
func (p *RegionProbe) Start(sink func(types.HealthCheckResult)) {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	ticker := p.clock.NewTicker(p.checkEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				sink(p.Probe(context.Background()))
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels the background probing loop started by Start.
func (p *RegionProbe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}
