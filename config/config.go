// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the kernel's tunable parameters, following the
// consensus runtime's config.Parameters / DefaultParams / MainnetParams
// preset trio.
package config

import "time"

// Parameters configures every tunable named in the kernel's invariants
// and component design.
type Parameters struct {
	// InitialEnergy is the kernel's starting free-energy pool, also the
	// ledger baseline (initial_total).
	InitialEnergy float64

	// ConservationEpsilon (I1) is the per-tick ledger tolerance.
	ConservationEpsilon float64
	// AuditEpsilon (§4.9b) is the wider tolerance the auditor's global
	// integrity pass uses, to absorb driver-scheduled transfers in flight.
	AuditEpsilon float64
	// TransferEpsilon is the minimum |transfer| worth recording as a
	// pending interaction transfer in pipeline step 4.
	TransferEpsilon float64

	// CouplingDeactivate is the coupling strength below which an
	// interaction is considered inactive (§3).
	CouplingDeactivate float64

	// SchedulerCutoff is the minimum priority a universe needs to be
	// scheduled this tick (§4.5).
	SchedulerCutoff float64

	// CollapseStability is the stability threshold below which the
	// kernel collapses a universe at pipeline step 9.
	CollapseStability float64

	// BranchMinEnergy is the flat minimum energy (before the memory
	// cost) branch() requires, per §4.1.
	BranchMinEnergy float64
	// BranchMemoryCost is the cost deducted from the parent before the
	// 50/50 split, spec.md's memory_potential_cost symbol. The
	// original source leaves this unspecified; this kernel fixes it at
	// a constant (5 in Default).
	BranchMemoryCost float64

	// SnapshotCapacity bounds the ring buffer (I6).
	SnapshotCapacity int

	// TickBudget bounds how long a single Tick is allowed to run before
	// the kernel logs a slow-tick warning. It does not abort the tick.
	TickBudget time.Duration
}

// Default returns the kernel's baseline parameters.
func Default() Parameters {
	return Parameters{
		InitialEnergy:       1000,
		ConservationEpsilon: 1e-3,
		AuditEpsilon:        0.05,
		TransferEpsilon:     1e-3,
		CouplingDeactivate:  1e-3,
		SchedulerCutoff:     1e-4,
		CollapseStability:   0.3,
		BranchMinEnergy:     10,
		BranchMemoryCost:    5,
		SnapshotCapacity:    100,
		TickBudget:          250 * time.Millisecond,
	}
}

// Chaos returns the parameters of the sabotage/chaos CLI mode. They
// equal Default: AuditEpsilon stays at 0.05, the drift bound S6 holds
// the ledger to under fault injection.
func Chaos() Parameters {
	p := Default()
	p.AuditEpsilon = 0.05
	return p
}

// Local returns parameters tuned for a small interactive run (fewer
// snapshots retained, identical physical constants).
func Local() Parameters {
	p := Default()
	p.SnapshotCapacity = 20
	return p
}
