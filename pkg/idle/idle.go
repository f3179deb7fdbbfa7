// Package idle implements per-node idle detection, auto-sleep after a
// timeout, on-demand wake with a minimum sleep floor, and integer-cent
// cost accounting.
package idle

import (
	"sync"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/events"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/metrics"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

const (
	DefaultIdleTimeout        = 300 * time.Second
	DefaultMinSleepDuration   = 60 * time.Second
	DefaultWakeUpTime         = 30 * time.Second
	DefaultCostPerHourCents   = 5
	DefaultIdleCheckInterval  = 30 * time.Second
	millisecondsPerHour int64 = 3600000
)

// Signal is published on every idle/active/sleeping/waking/awake
// transition.
type Signal struct {
	NodeID    string
	State     types.NodeState
	Timestamp time.Time
}

// Config configures a Manager.
type Config struct {
	IdleTimeout      time.Duration
	MinSleepDuration time.Duration
	WakeUpTime       time.Duration
	Clock            clock.Clock
}

func (c *Config) withDefaults() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MinSleepDuration <= 0 {
		c.MinSleepDuration = DefaultMinSleepDuration
	}
	if c.WakeUpTime <= 0 {
		c.WakeUpTime = DefaultWakeUpTime
	}
	if c.Clock == nil {
		c.Clock = clock.NewReal()
	}
}

// Manager is the IdleManager.
type Manager struct {
	mu sync.Mutex

	nodes map[string]*types.IdleNodeEntry

	cfg    Config
	logger zerolog.Logger
	broker *events.Broker[Signal]

	stopIdleCheck chan struct{}
	wakeTimers    map[string]clock.Ticker
}

// New constructs a Manager and starts its signal broker.
func New(cfg Config) *Manager {
	cfg.withDefaults()
	m := &Manager{
		nodes:      make(map[string]*types.IdleNodeEntry),
		cfg:        cfg,
		logger:     log.WithComponent("idlemanager"),
		broker:     events.NewBroker[Signal](100),
		wakeTimers: make(map[string]clock.Ticker),
	}
	m.broker.Start()
	return m
}

// Subscribe returns a channel of idle-state Signals.
func (m *Manager) Subscribe() events.Subscriber[Signal] { return m.broker.Subscribe() }

// Unsubscribe removes a Signal subscription.
func (m *Manager) Unsubscribe(sub events.Subscriber[Signal]) { m.broker.Unsubscribe(sub) }

// Stop stops the signal broker.
func (m *Manager) Stop() { m.broker.Stop() }

// RegisterNode adds a node in the Active state.
func (m *Manager) RegisterNode(nodeID string, costPerHourCents int64, autoSleepEnabled bool) {
	if costPerHourCents <= 0 {
		costPerHourCents = DefaultCostPerHourCents
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[nodeID] = &types.IdleNodeEntry{
		NodeID:           nodeID,
		State:            types.NodeActive,
		CostPerHourCents: costPerHourCents,
		AutoSleepEnabled: autoSleepEnabled,
	}
	metrics.IdleNodesTotal.WithLabelValues(string(types.NodeActive)).Inc()
}

// UnregisterNode removes a node's bookkeeping entry.
func (m *Manager) UnregisterNode(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[nodeID]; ok {
		metrics.IdleNodesTotal.WithLabelValues(string(n.State)).Dec()
		delete(m.nodes, nodeID)
	}
}

// MarkIdle transitions Active -> Idle.
func (m *Manager) MarkIdle(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok || n.State != types.NodeActive {
		return false
	}
	m.setStateLocked(n, types.NodeIdle)
	n.IdleSince = m.cfg.Clock.Now()
	return true
}

// MarkActive transitions any state back to Active, accumulating
// savings first if the node was Sleeping.
func (m *Manager) MarkActive(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok {
		return false
	}
	if n.State == types.NodeSleeping {
		m.accumulateSavingsLocked(n)
	}
	m.setStateLocked(n, types.NodeActive)
	n.IdleSince = time.Time{}
	n.SleepingSince = time.Time{}
	return true
}

// Sleep transitions Idle -> Sleeping.
func (m *Manager) Sleep(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok || n.State != types.NodeIdle {
		return false
	}
	m.setStateLocked(n, types.NodeSleeping)
	n.SleepingSince = m.cfg.Clock.Now()
	metrics.IdleSleepTransitionsTotal.WithLabelValues("sleep").Inc()
	return true
}

// Wake transitions Sleeping -> Waking -> (after wakeUpTime) Active.
// Rejected if the minimum sleep duration has not yet elapsed.
func (m *Manager) Wake(nodeID string) bool {
	m.mu.Lock()
	n, ok := m.nodes[nodeID]
	if !ok || n.State != types.NodeSleeping {
		m.mu.Unlock()
		return false
	}
	now := m.cfg.Clock.Now()
	if now.Sub(n.SleepingSince) < m.cfg.MinSleepDuration {
		m.mu.Unlock()
		return false
	}
	m.accumulateSavingsLocked(n)
	m.setStateLocked(n, types.NodeWaking)
	metrics.IdleSleepTransitionsTotal.WithLabelValues("wake").Inc()
	m.mu.Unlock()

	timer := m.cfg.Clock.NewTicker(m.cfg.WakeUpTime)
	m.mu.Lock()
	m.wakeTimers[nodeID] = timer
	m.mu.Unlock()

	go func() {
		<-timer.C()
		timer.Stop()
		m.mu.Lock()
		delete(m.wakeTimers, nodeID)
		n, ok := m.nodes[nodeID]
		if ok && n.State == types.NodeWaking {
			m.setStateLocked(n, types.NodeActive)
			n.SleepingSince = time.Time{}
		}
		m.mu.Unlock()
	}()
	return true
}

// accumulateSavingsLocked adds the just-completed sleep segment's
// duration and cost to the node's totals. Caller must hold m.mu.
func (m *Manager) accumulateSavingsLocked(n *types.IdleNodeEntry) {
	if n.SleepingSince.IsZero() {
		return
	}
	delta := m.cfg.Clock.Now().Sub(n.SleepingSince)
	deltaMs := delta.Milliseconds()
	n.TotalSleepTimeMs += deltaMs

	savings := roundDiv(deltaMs*n.CostPerHourCents, millisecondsPerHour)
	n.EstimatedSavingsCents += savings
	metrics.IdleEstimatedSavingsCents.Add(float64(savings))
}

func roundDiv(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	return (numerator + denominator/2) / denominator
}

func (m *Manager) setStateLocked(n *types.IdleNodeEntry, newState types.NodeState) {
	metrics.IdleNodesTotal.WithLabelValues(string(n.State)).Dec()
	n.State = newState
	metrics.IdleNodesTotal.WithLabelValues(string(newState)).Inc()

	m.broker.Publish(Signal{NodeID: n.NodeID, State: newState, Timestamp: m.cfg.Clock.Now()})
}

// CheckIdleNodes scans every Idle, auto-sleep-enabled node whose idle
// duration has reached idleTimeout and puts it to sleep. Returns the
// node ids sent to sleep.
func (m *Manager) CheckIdleNodes() []string {
	m.mu.Lock()
	now := m.cfg.Clock.Now()
	var candidates []string
	for id, n := range m.nodes {
		if n.State == types.NodeIdle && n.AutoSleepEnabled && now.Sub(n.IdleSince) >= m.cfg.IdleTimeout {
			candidates = append(candidates, id)
		}
	}
	m.mu.Unlock()

	var slept []string
	for _, id := range candidates {
		if m.Sleep(id) {
			slept = append(slept, id)
		}
	}
	return slept
}

// StartIdleCheck begins a background idle-scan loop at the given
// interval (0 uses DefaultIdleCheckInterval).
func (m *Manager) StartIdleCheck(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultIdleCheckInterval
	}
	m.mu.Lock()
	if m.stopIdleCheck != nil {
		m.mu.Unlock()
		return
	}
	m.stopIdleCheck = make(chan struct{})
	stop := m.stopIdleCheck
	m.mu.Unlock()

	ticker := m.cfg.Clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				slept := m.CheckIdleNodes()
				if len(slept) > 0 {
					m.logger.Debug().Strs("nodes", slept).Msg("idle nodes sent to sleep")
				}
			case <-stop:
				return
			}
		}
	}()
}

// StopIdleCheck stops the background idle-scan loop.
func (m *Manager) StopIdleCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopIdleCheck != nil {
		close(m.stopIdleCheck)
		m.stopIdleCheck = nil
	}
}

// GetTotalSavings returns accumulated savings across every node, plus
// the in-progress segment for any node currently sleeping.
func (m *Manager) GetTotalSavings() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	now := m.cfg.Clock.Now()
	for _, n := range m.nodes {
		total += n.EstimatedSavingsCents
		if n.State == types.NodeSleeping && !n.SleepingSince.IsZero() {
			deltaMs := now.Sub(n.SleepingSince).Milliseconds()
			total += roundDiv(deltaMs*n.CostPerHourCents, millisecondsPerHour)
		}
	}
	return total
}

// GetNode returns a copy of a node's idle bookkeeping entry.
func (m *Manager) GetNode(nodeID string) (types.IdleNodeEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[nodeID]
	if !ok {
		return types.IdleNodeEntry{}, false
	}
	return *n, true
}
