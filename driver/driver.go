// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package driver defines the hardware-driver boundary, per spec §4.10:
// the kernel calls each driver's Sync once per tick and its HandleEvent
// for every event radiated off the node. A driver never touches
// kernel state directly: it observes a read-only view, emits events
// and a system pulse, and receives events routed to it by the kernel.
// This mirrors the single-threaded cooperative model in
// original_source/kernel/src/physics/drivers.rs's HardwareDriver trait,
// narrowed to the three in-scope concrete drivers (archive, network,
// chaos).
package driver

import "github.com/ethcocoder/universos/ids"

// PulseKind is the system-level directive a driver can request of the
// kernel once per sync.
type PulseKind uint8

const (
	PulseNone PulseKind = iota
	PulseRewind
	PulseCollapseAll
	PulseSabotage
	PulseShutdown
)

// Pulse carries a PulseKind plus whatever argument that kind needs:
// Rewind uses Amount as a step count, Sabotage uses UniverseID and
// Amount as an energy-drain target and magnitude.
type Pulse struct {
	Kind       PulseKind
	UniverseID ids.UniverseID
	Amount     float64
}

// UniverseView is the read-only per-universe state a driver may
// observe during Sync; it is a value copy, never a live pointer.
type UniverseView struct {
	ID        ids.UniverseID
	Energy    float64
	Entropy   float64
	Stability float64
	Clock     uint64
}

// Event is the minimal event shape drivers emit and receive; it
// mirrors event.Event's externally relevant fields without importing
// the event package's queueing machinery.
type Event struct {
	Tag     uint8
	Source  ids.UniverseID
	Target  ids.UniverseID
	Payload float64
	Data    []byte
}

// Driver is the hardware-driver contract. Sync is called once per
// tick with a snapshot of all universes; it may append events to emit
// and returns a Pulse (PulseNone for "nothing to report"). HandleEvent
// delivers an event the kernel routed to this driver. PendingEnergy
// reports energy the driver is currently holding outside the kernel's
// ledger (e.g. in-flight network payloads), for conservation auditing.
type Driver interface {
	Name() string
	Sync(tick uint64, universes []UniverseView) (emit []Event, pulse Pulse)
	HandleEvent(ev Event)
	PendingEnergy() float64
}
