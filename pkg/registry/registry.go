// Package registry tracks which nodes are live in which region, the
// external bookkeeping that health.RegionProbe reads to know what to
// check and that the CLI's node commands list from.
package registry

import (
	"sync"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
)

// NodeInfo is one node's registration record.
type NodeInfo struct {
	NodeID           string
	RegionID         string
	Address          string
	Labels           map[string]string
	CostPerHourCents int64
	AutoSleepEnabled bool
	LastHeartbeat    time.Time
}

// NodeRegistry is the read/write interface other components depend on
// to discover region membership. A single in-memory implementation is
// provided; a cluster deployment would back this with the same
// storage layer used for the other components' state.
type NodeRegistry interface {
	// Register adds or replaces a node's record.
	Register(node NodeInfo)
	// Deregister removes a node.
	Deregister(nodeID string)
	// Heartbeat stamps a node's LastHeartbeat with the current time.
	Heartbeat(nodeID string) bool
	// ListNodes returns every node in a region. If role is non-empty it
	// is matched against the node's "role" label.
	ListNodes(regionID, role string) []NodeInfo
	// Get returns a single node's record.
	Get(nodeID string) (NodeInfo, bool)
	// PruneStale removes nodes whose LastHeartbeat is older than
	// maxAge, returning the removed node ids.
	PruneStale(maxAge time.Duration) []string
}

// InMemoryRegistry is the reference NodeRegistry, a mutex-guarded map
// keyed by node id.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	nodes map[string]NodeInfo
	clock clock.Clock
}

// NewInMemoryRegistry constructs an empty registry. A nil clock uses
// the real wall clock.
func NewInMemoryRegistry(clk clock.Clock) *InMemoryRegistry {
	if clk == nil {
		clk = clock.NewReal()
	}
	return &InMemoryRegistry{
		nodes: make(map[string]NodeInfo),
		clock: clk,
	}
}

func (r *InMemoryRegistry) Register(node NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if node.LastHeartbeat.IsZero() {
		node.LastHeartbeat = r.clock.Now()
	}
	r.nodes[node.NodeID] = node
}

func (r *InMemoryRegistry) Deregister(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, nodeID)
}

func (r *InMemoryRegistry) Heartbeat(nodeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	if !ok {
		return false
	}
	n.LastHeartbeat = r.clock.Now()
	r.nodes[nodeID] = n
	return true
}

func (r *InMemoryRegistry) ListNodes(regionID, role string) []NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []NodeInfo
	for _, n := range r.nodes {
		if regionID != "" && n.RegionID != regionID {
			continue
		}
		if role != "" && n.Labels["role"] != role {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (r *InMemoryRegistry) Get(nodeID string) (NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[nodeID]
	return n, ok
}

func (r *InMemoryRegistry) PruneStale(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	var removed []string
	for id, n := range r.nodes {
		if now.Sub(n.LastHeartbeat) > maxAge {
			delete(r.nodes, id)
			removed = append(removed, id)
		}
	}
	return removed
}
