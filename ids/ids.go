// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the opaque identifier namespaces used throughout
// the kernel: universe IDs, interaction IDs, and event IDs are disjoint
// 64-bit integer spaces, never compared across namespaces by value.
package ids

import (
	"fmt"
	"sync/atomic"
)

// UniverseID identifies a universe. Values >= RemoteThreshold are
// reserved "off-node" addresses that route to drivers instead of a
// local universe.
type UniverseID uint64

// InteractionID identifies an interaction between exactly two universes.
type InteractionID uint64

// EventID identifies a single event, unique for the lifetime of a kernel.
type EventID uint64

// RemoteThreshold is the first reserved off-node universe address.
const RemoteThreshold UniverseID = 999

// IsLocal reports whether id addresses a universe that could exist on
// this node, as opposed to a reserved remote/driver address.
func (id UniverseID) IsLocal() bool {
	return id < RemoteThreshold
}

func (id UniverseID) String() string    { return fmt.Sprintf("U%d", uint64(id)) }
func (id InteractionID) String() string { return fmt.Sprintf("I%d", uint64(id)) }
func (id EventID) String() string       { return fmt.Sprintf("E%d", uint64(id)) }

// Generator hands out monotonically increasing identifiers for each
// namespace. The source material this kernel is modeled on derives
// event IDs from `tick*1000+source mod 1000`, which collides across
// ticks; this kernel uses a monotonic counter per namespace instead so
// every ID handed out is unique for the process lifetime.
type Generator struct {
	nextUniverse    atomic.Uint64
	nextInteraction atomic.Uint64
	nextEvent       atomic.Uint64
}

// NewGenerator returns a Generator whose counters start at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// NextUniverse returns the next unused universe ID.
func (g *Generator) NextUniverse() UniverseID {
	return UniverseID(g.nextUniverse.Add(1) - 1)
}

// NextInteraction returns the next unused interaction ID.
func (g *Generator) NextInteraction() InteractionID {
	return InteractionID(g.nextInteraction.Add(1) - 1)
}

// NextEvent returns the next unused event ID.
func (g *Generator) NextEvent() EventID {
	return EventID(g.nextEvent.Add(1) - 1)
}
