// Package core wires the five components — JobTracker, ArtifactStore,
// QuotaManager, FailoverManager, IdleManager — together with the node
// registry, storage, and persistence write-through, producing the
// single object a command or server binds to.
package core

import (
	"fmt"
	"os"

	"github.com/cuemby/forgecore/pkg/artifactstore"
	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/config"
	"github.com/cuemby/forgecore/pkg/failover"
	"github.com/cuemby/forgecore/pkg/idle"
	"github.com/cuemby/forgecore/pkg/jobtracker"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/quota"
	"github.com/cuemby/forgecore/pkg/registry"
	"github.com/cuemby/forgecore/pkg/storage"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

// Core bundles every component and its shared infrastructure for one
// forgecore node.
type Core struct {
	Jobs      *jobtracker.Tracker
	Artifacts *artifactstore.Store
	Quotas    *quota.Manager
	Failover  *failover.Manager
	Idle      *idle.Manager
	Nodes     registry.NodeRegistry

	store  storage.Store
	clock  clock.Clock
	logger zerolog.Logger
}

// New constructs a Core from a loaded Config, registering the regions
// and quotas listed in the config and reloading persisted quota
// definitions and idle node registrations from store before returning.
func New(cfg *config.Config) (*Core, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.NewReal()
	logger := log.WithComponent("core")

	c := &Core{
		Jobs:      jobtracker.New(jobtracker.Config{MaxHistory: cfg.JobTracker.MaxHistory, Clock: clk}),
		Artifacts: artifactstore.New(withClock(cfg.ArtifactStoreConfig(), clk)),
		Quotas:    quota.New(quota.Config{Clock: clk}),
		Failover:  failover.New(failover.Config{MaxEventHistory: cfg.Failover.MaxEventHistory, Clock: clk}),
		Idle:      idle.New(withIdleClock(cfg.IdleConfig(), clk)),
		Nodes:     registry.NewInMemoryRegistry(clk),
		store:     store,
		clock:     clk,
		logger:    logger,
	}

	if err := c.restore(cfg); err != nil {
		store.Close()
		return nil, fmt.Errorf("restore state: %w", err)
	}

	c.wirePersistence()
	c.Artifacts.StartCleanup(0)
	c.Idle.StartIdleCheck(0)
	return c, nil
}

func withClock(cfg artifactstore.Config, clk clock.Clock) artifactstore.Config {
	cfg.Clock = clk
	return cfg
}

func withIdleClock(cfg idle.Config, clk clock.Clock) idle.Config {
	cfg.Clock = clk
	return cfg
}

// restore loads durable state recorded by a previous run: configured
// regions and quotas from the config file, plus whatever quota/idle
// bookkeeping was persisted to store.
func (c *Core) restore(cfg *config.Config) error {
	for _, rc := range cfg.Failover.Regions {
		c.Failover.RegisterRegion(rc)
	}
	for i := range cfg.Quotas {
		c.Quotas.SetQuota(cfg.Quotas[i])
	}

	defs, err := c.store.ListQuotas()
	if err != nil {
		return err
	}
	for _, d := range defs {
		c.Quotas.SetQuota(*d)
	}

	nodes, err := c.store.ListIdleNodes()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		c.Idle.RegisterNode(n.NodeID, n.CostPerHourCents, n.AutoSleepEnabled)
	}

	return nil
}

// wirePersistence subscribes to each component's broker and writes
// terminal jobs, idle node entries and region failover state through to
// store. Of these, restore reloads only the idle node registrations.
func (c *Core) wirePersistence() {
	jobEvents := c.Jobs.Subscribe()
	go func() {
		for n := range jobEvents {
			// Terminal jobs are archived, so GetJob no longer sees them.
			var job *types.Job
			for _, h := range c.Jobs.GetHistory(0) {
				if h.JobID == n.JobID {
					job = h
					break
				}
			}
			if job == nil || !job.Status.Terminal() {
				continue
			}
			if err := c.store.SaveJob(job); err != nil {
				c.logger.Error().Err(err).Str("job_id", n.JobID).Msg("persist job failed")
			}
		}
	}()

	idleSignals := c.Idle.Subscribe()
	go func() {
		for sig := range idleSignals {
			node, ok := c.Idle.GetNode(sig.NodeID)
			if !ok {
				continue
			}
			if err := c.store.SaveIdleNode(&node); err != nil {
				c.logger.Error().Err(err).Str("node_id", sig.NodeID).Msg("persist idle node failed")
			}
		}
	}()

	failoverEvents := c.Failover.Subscribe()
	go func() {
		for ev := range failoverEvents {
			regionID := ev.FromRegion
			if regionID == "" {
				regionID = ev.ToRegion
			}
			state, ok := c.Failover.GetState(regionID)
			if !ok {
				continue
			}
			if err := c.store.SaveRegionState(&state); err != nil {
				c.logger.Error().Err(err).Str("region_id", regionID).Msg("persist region state failed")
			}
		}
	}()
}

// Close stops every component's broker and background loop and closes
// the store.
func (c *Core) Close() error {
	c.Jobs.Stop()
	c.Artifacts.StopCleanup()
	c.Quotas.Stop()
	c.Failover.Stop()
	c.Idle.StopIdleCheck()
	c.Idle.Stop()
	return c.store.Close()
}

// RegisterEntityQuota is a convenience wrapper persisting a quota
// definition both in QuotaManager and in store.
func (c *Core) RegisterEntityQuota(def types.QuotaDefinition) error {
	c.Quotas.SetQuota(def)
	return c.store.SaveQuota(&def)
}

// RegisterNode adds a node to the registry and to IdleManager's
// bookkeeping, and persists its idle entry so it survives a restart.
func (c *Core) RegisterNode(node registry.NodeInfo) error {
	c.Nodes.Register(node)
	c.Idle.RegisterNode(node.NodeID, node.CostPerHourCents, node.AutoSleepEnabled)
	entry, ok := c.Idle.GetNode(node.NodeID)
	if !ok {
		return fmt.Errorf("idle entry missing immediately after registration for %s", node.NodeID)
	}
	return c.store.SaveIdleNode(&entry)
}
