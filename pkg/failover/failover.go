// Package failover implements per-region health-driven failover with
// hysteresis: a Degraded warning zone before FailedOver, and a cooldown
// floor before FailingBack is considered.
package failover

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

// DefaultMaxEventHistory bounds the per-region event log.
const DefaultMaxEventHistory = 500

// Config configures a Manager.
type Config struct {
	MaxEventHistory int
	Clock           clock.Clock
}

type regionEntry struct {
	state types.RegionFailoverState
}

// Manager is the FailoverManager.
type Manager struct {
	mu sync.Mutex

	regions map[string]*regionEntry

	maxEventHistory int
	clock           clock.Clock
	logger          zerolog.Logger
	broker          *events.Broker[types.FailoverEvent]
}

// New constructs a Manager and starts its event broker.
func New(cfg Config) *Manager {
	maxHistory := cfg.MaxEventHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxEventHistory
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	m := &Manager{
		regions:         make(map[string]*regionEntry),
		maxEventHistory: maxHistory,
		clock:           clk,
		logger:          log.WithComponent("failovermanager"),
		broker:          events.NewBroker[types.FailoverEvent](100),
	}
	m.broker.Start()
	return m
}

// Subscribe returns a channel of FailoverEvents.
func (m *Manager) Subscribe() events.Subscriber[types.FailoverEvent] { return m.broker.Subscribe() }

// Unsubscribe removes a FailoverEvent subscription.
func (m *Manager) Unsubscribe(sub events.Subscriber[types.FailoverEvent]) { m.broker.Unsubscribe(sub) }

// Stop stops the event broker.
func (m *Manager) Stop() { m.broker.Stop() }

// RegisterRegion initializes region state as Normal with zero counters.
func (m *Manager) RegisterRegion(cfg types.RegionConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[cfg.RegionID] = &regionEntry{
		state: types.RegionFailoverState{
			Config: cfg,
			State:  types.StateNormal,
		},
	}
}

// ProcessHealthCheck feeds one health signal into the region's state
// machine, applying hysteresis and failback floor rules.
func (m *Manager) ProcessHealthCheck(result types.HealthCheckResult) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FailoverHealthCheckDuration)

	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.regions[result.RegionID]
	if !ok {
		return
	}
	now := m.clock.Now()
	s := &region.state
	s.LastCheckAt = now

	if result.Healthy {
		s.ConsecutiveFailures = 0
		s.ConsecutiveSuccesses++

		if s.State == types.StateFailedOver {
			elapsed := now.Sub(s.FailedOverAt)
			if elapsed >= time.Duration(s.Config.FailbackDelayMs)*time.Millisecond && s.ConsecutiveSuccesses >= s.Config.RecoveryThreshold {
				m.transitionLocked(s, types.StateFailingBack, "recovery threshold and failback delay satisfied", now)
				m.transitionLocked(s, types.StateNormal, "failback complete", now)
				s.FailedOverAt = time.Time{}
			}
			return
		}
		if s.State == types.StateDegraded {
			m.transitionLocked(s, types.StateNormal, "health recovered", now)
		}
		return
	}

	s.ConsecutiveSuccesses = 0
	s.ConsecutiveFailures++

	if s.State == types.StateNormal && s.ConsecutiveFailures >= ceilDiv(s.Config.FailureThreshold, 2) {
		m.transitionLocked(s, types.StateDegraded, "consecutive failures crossed degraded threshold", now)
	}

	if s.ConsecutiveFailures >= s.Config.FailureThreshold &&
		s.State != types.StateFailingOver && s.State != types.StateFailedOver {
		m.transitionLocked(s, types.StateFailingOver, "consecutive failures reached failure threshold", now)
		m.transitionLocked(s, types.StateFailedOver, "failover complete", now)
		s.FailedOverAt = now
	}
}

// GetActiveRegion returns backupRegionId iff the region is FailedOver,
// else regionId itself.
func (m *Manager) GetActiveRegion(regionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionID]
	if !ok {
		return regionID
	}
	if region.state.State == types.StateFailedOver {
		return region.state.Config.BackupRegionID
	}
	return regionID
}

// ForceFailover manually transitions a region straight to FailedOver,
// bypassing counters.
func (m *Manager) ForceFailover(regionID, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionID]
	if !ok {
		return false
	}
	now := m.clock.Now()
	s := &region.state
	m.transitionLocked(s, types.StateFailingOver, reason, now)
	m.transitionLocked(s, types.StateFailedOver, reason, now)
	s.FailedOverAt = now
	s.ConsecutiveFailures = 0
	s.ConsecutiveSuccesses = 0
	return true
}

// ForceFailback manually transitions a region straight back to Normal,
// bypassing the failback delay and recovery threshold.
func (m *Manager) ForceFailback(regionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionID]
	if !ok {
		return false
	}
	now := m.clock.Now()
	s := &region.state
	m.transitionLocked(s, types.StateNormal, "manual failback", now)
	s.FailedOverAt = time.Time{}
	s.ConsecutiveFailures = 0
	s.ConsecutiveSuccesses = 0
	return true
}

// GetEvents returns up to limit of the most recent events for a region,
// most recent first. limit <= 0 returns the full log.
func (m *Manager) GetEvents(regionID string, limit int) []types.FailoverEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionID]
	if !ok {
		return nil
	}
	events := region.state.Events
	n := len(events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]types.FailoverEvent, n)
	for i := 0; i < n; i++ {
		out[i] = events[len(events)-1-i]
	}
	return out
}

// GetState returns the current RegionFailoverState snapshot.
func (m *Manager) GetState(regionID string) (types.RegionFailoverState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionID]
	if !ok {
		return types.RegionFailoverState{}, false
	}
	return region.state, true
}

// GetFailedOverRegions returns the ids of every region currently
// FailedOver.
func (m *Manager) GetFailedOverRegions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, region := range m.regions {
		if region.state.State == types.StateFailedOver {
			out = append(out, id)
		}
	}
	return out
}

// transitionLocked appends an event and sets state. Caller must hold
// m.mu.
func (m *Manager) transitionLocked(s *types.RegionFailoverState, newState types.FailoverState, reason string, now time.Time) {
	fromRegion := s.Config.RegionID
	toRegion := fromRegion
	if newState == types.StateFailedOver {
		toRegion = s.Config.BackupRegionID
	}

	event := types.FailoverEvent{
		FromRegion: fromRegion,
		ToRegion:   toRegion,
		State:      newState,
		Reason:     reason,
		Timestamp:  now,
	}
	s.Events = append(s.Events, event)
	if len(s.Events) > m.maxEventHistory {
		s.Events = s.Events[len(s.Events)-m.maxEventHistory:]
	}
	s.State = newState

	metrics.FailoverTransitionsTotal.WithLabelValues(s.Config.RegionID, string(newState)).Inc()
	metrics.FailoverRegionState.WithLabelValues(s.Config.RegionID, string(newState)).Set(1)

	m.logger.Info().
		Str("region_id", s.Config.RegionID).
		Str("state", string(newState)).
		Str("reason", reason).
		Msg("failover state transition")

	m.broker.Publish(event)
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
