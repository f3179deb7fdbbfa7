// Package storage provides BoltDB-backed persistence for the durable
// state each component needs across restarts: archived jobs, artifact
// metadata, quota definitions and usage, region failover state, and
// idle node entries.
//
// One bucket per entity kind, JSON-encoded values keyed by entity id.
// Reads use db.View, writes use db.Update; BoltDB serializes writers
// and gives readers a consistent snapshot. Active, in-flight state
// (the running job map, artifact content bytes) is never persisted
// here — only what a component needs to rebuild its bookkeeping after
// a restart.
package storage
