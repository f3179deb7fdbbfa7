// Package quota implements per-entity admission control: quota
// definitions, rolling usage snapshots with UTC daily rollover, and
// warning/exceeded event emission.
package quota

import (
	"math"
	"sync"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/cuemby/forgecore/pkg/events"
	"github.com/cuemby/forgecore/pkg/log"
	"github.com/cuemby/forgecore/pkg/metrics"
	"github.com/cuemby/forgecore/pkg/types"
	"github.com/rs/zerolog"
)

const dailyResetDateLayout = "2006-01-02"

// Signal is published on quota warning/exceeded.
type Signal struct {
	Kind   string // "warning" or "exceeded"
	Result types.QuotaCheckResult
}

// Config configures a Manager.
type Config struct {
	Clock clock.Clock
}

// Manager is the QuotaManager.
type Manager struct {
	mu sync.Mutex

	quotas map[string]types.QuotaDefinition
	usage  map[string]types.QuotaUsageSnapshot

	clock  clock.Clock
	logger zerolog.Logger
	broker *events.Broker[Signal]
}

// New constructs a Manager and starts its signal broker.
func New(cfg Config) *Manager {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	m := &Manager{
		quotas: make(map[string]types.QuotaDefinition),
		usage:  make(map[string]types.QuotaUsageSnapshot),
		clock:  clk,
		logger: log.WithComponent("quotamanager"),
		broker: events.NewBroker[Signal](100),
	}
	m.broker.Start()
	return m
}

// Subscribe returns a channel of quota Signals.
func (m *Manager) Subscribe() events.Subscriber[Signal] { return m.broker.Subscribe() }

// Unsubscribe removes a Signal subscription.
func (m *Manager) Unsubscribe(sub events.Subscriber[Signal]) { m.broker.Unsubscribe(sub) }

// Stop stops the signal broker.
func (m *Manager) Stop() { m.broker.Stop() }

// SetQuota registers or replaces the quota definition for an entity.
func (m *Manager) SetQuota(def types.QuotaDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotas[def.EntityID] = def
}

// RemoveQuota deletes the quota definition for an entity.
func (m *Manager) RemoveQuota(entityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotas, entityID)
}

// GetQuota returns the quota definition for an entity, or false if
// none is registered.
func (m *Manager) GetQuota(entityID string) (types.QuotaDefinition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.quotas[entityID]
	return def, ok
}

// UpdateUsage replaces the stored snapshot for snapshot.EntityID. If
// the stored snapshot's dailyResetDate is older than snapshot's, builds
// today is rolled to 0 before replacement. Evaluates and emits
// warning/exceeded signals for every resource dimension with a
// registered quota.
func (m *Manager) UpdateUsage(snapshot types.QuotaUsageSnapshot) {
	m.mu.Lock()
	if existing, ok := m.usage[snapshot.EntityID]; ok && existing.DailyResetDate != "" &&
		snapshot.DailyResetDate != "" && existing.DailyResetDate < snapshot.DailyResetDate {
		snapshot.BuildsToday = 0
	}
	m.usage[snapshot.EntityID] = snapshot
	def, hasQuota := m.quotas[snapshot.EntityID]
	m.mu.Unlock()

	if !hasQuota {
		return
	}
	for _, rt := range []types.ResourceType{
		types.ResourceCPU, types.ResourceRAM, types.ResourceStorage,
		types.ResourceConcurrentJobs, types.ResourceBuilds,
	} {
		result := m.evaluate(def, snapshot, rt, 0)
		m.emitIfNeeded(result)
	}
}

// CheckQuota evaluates whether drawing additionalUsage more of
// resourceType is admissible for entityID.
func (m *Manager) CheckQuota(entityID string, resourceType types.ResourceType, additionalUsage float64) types.QuotaCheckResult {
	m.mu.Lock()
	def, hasQuota := m.quotas[entityID]
	snapshot := m.usage[entityID]
	m.mu.Unlock()

	if snapshot.DailyResetDate != "" && snapshot.DailyResetDate != m.clock.Now().UTC().Format(dailyResetDateLayout) {
		snapshot.BuildsToday = 0
	}

	result := types.QuotaCheckResult{
		Allowed:      true,
		ResourceType: resourceType,
	}
	if !hasQuota {
		result.Limit = math.Inf(1)
		result.CurrentUsage = m.current(snapshot, resourceType) + additionalUsage
		return result
	}

	result = m.evaluate(def, snapshot, resourceType, additionalUsage)
	metrics.QuotaChecksTotal.WithLabelValues(string(resourceType), boolLabel(result.Allowed)).Inc()
	return result
}

func (m *Manager) evaluate(def types.QuotaDefinition, snapshot types.QuotaUsageSnapshot, rt types.ResourceType, additional float64) types.QuotaCheckResult {
	current := m.current(snapshot, rt)
	limit := m.limit(def, rt)
	projected := current + additional

	result := types.QuotaCheckResult{
		QuotaID:      def.QuotaID,
		ResourceType: rt,
		CurrentUsage: projected,
		Limit:        limit,
		Allowed:      true,
	}

	switch {
	case limit > 0:
		result.UsagePercent = int(math.Round(100 * projected / limit))
	case projected > limit:
		result.UsagePercent = 100
	}

	switch {
	case projected <= limit:
		result.Warning = result.UsagePercent >= def.WarningThresholdPercent
	case !def.HardLimit:
		result.Allowed = true
		result.Warning = true
		result.Message = "soft limit exceeded"
	default:
		result.Allowed = false
		result.Message = "hard limit exceeded"
	}
	return result
}

func (m *Manager) current(snapshot types.QuotaUsageSnapshot, rt types.ResourceType) float64 {
	switch rt {
	case types.ResourceCPU:
		return snapshot.CPUMinutesUsed
	case types.ResourceRAM:
		return float64(snapshot.RAMMbUsed)
	case types.ResourceStorage:
		return float64(snapshot.StorageMbUsed)
	case types.ResourceConcurrentJobs:
		return float64(snapshot.ConcurrentJobs)
	case types.ResourceBuilds:
		return float64(snapshot.BuildsToday)
	default:
		return 0
	}
}

func (m *Manager) limit(def types.QuotaDefinition, rt types.ResourceType) float64 {
	switch rt {
	case types.ResourceCPU:
		return def.MaxCPUMinutes
	case types.ResourceRAM:
		return float64(def.MaxRAMMb)
	case types.ResourceStorage:
		return float64(def.MaxStorageMb)
	case types.ResourceConcurrentJobs:
		return float64(def.MaxConcurrentJobs)
	case types.ResourceBuilds:
		return float64(def.MaxBuildsPerDay)
	default:
		return 0
	}
}

func (m *Manager) emitIfNeeded(result types.QuotaCheckResult) {
	switch {
	case !result.Allowed:
		metrics.QuotaWarningsTotal.WithLabelValues(string(result.ResourceType)).Inc()
		m.broker.Publish(Signal{Kind: "exceeded", Result: result})
	case result.Warning:
		metrics.QuotaWarningsTotal.WithLabelValues(string(result.ResourceType)).Inc()
		m.broker.Publish(Signal{Kind: "warning", Result: result})
	}
}

// IncrementBuilds rolls buildsToday to the current UTC date if needed,
// then increments and returns the new count.
func (m *Manager) IncrementBuilds(entityID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := m.clock.Now().UTC().Format(dailyResetDateLayout)
	snapshot := m.usage[entityID]
	snapshot.EntityID = entityID
	if snapshot.DailyResetDate != today {
		snapshot.DailyResetDate = today
		snapshot.BuildsToday = 0
	}
	snapshot.BuildsToday++
	m.usage[entityID] = snapshot
	return snapshot.BuildsToday
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
