// Package idgen generates the opaque identifiers forgecore's components
// hand out for jobs, artifacts, quotas, and other tracked entities.
package idgen

import "github.com/google/uuid"

// Generator produces unique identifiers, optionally prefixed so IDs
// remain distinguishable by kind when logged or stored together.
type Generator interface {
	New(prefix string) string
}

// UUIDGenerator generates RFC 4122 version 4 identifiers.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default UUID-backed generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// New returns prefix-<uuid>, or a bare uuid if prefix is empty.
func (g *UUIDGenerator) New(prefix string) string {
	id := uuid.New().String()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
