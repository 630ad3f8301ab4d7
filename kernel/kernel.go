// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kernel implements the orchestrator: the fixed 14-step
// evolution pipeline, event routing, the snapshot/rewind ring buffer,
// and the wiring between the scheduler, the VM, the auditor, and
// drivers, per spec §4.6-§4.10. The kernel is a single value threaded
// through the evolution loop — there is no kernel-internal concurrency;
// drivers may run their own goroutines but only ever touch kernel
// state through Sync/HandleEvent, both called from the kernel's own
// goroutine.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ethcocoder/universos/auditor"
	"github.com/ethcocoder/universos/config"
	"github.com/ethcocoder/universos/driver"
	"github.com/ethcocoder/universos/event"
	"github.com/ethcocoder/universos/ids"
	"github.com/ethcocoder/universos/interaction"
	"github.com/ethcocoder/universos/metrics"
	"github.com/ethcocoder/universos/scheduler"
	"github.com/ethcocoder/universos/universe"
	"github.com/ethcocoder/universos/vm"
	"github.com/ethcocoder/universos/xmath"
)

// entangleDecayDefault is the decay rate assigned to an interaction
// created by an Entangle event; the original source leaves this
// unspecified (unlike CreateInteraction's caller-supplied decay for
// explicitly requested interactions).
const entangleDecayDefault = 0.01

var (
	// ErrUniverseNotFound is a lookup error: the referenced universe ID
	// is not live.
	ErrUniverseNotFound = errors.New("kernel: universe not found")
	// ErrInsufficientEnergy mirrors universe.ErrInsufficientEnergy at the
	// kernel's pool level.
	ErrInsufficientEnergy = errors.New("kernel: insufficient free energy")
)

// snapshot is one tick's worth of kernel state, cloned independently
// of the live instances, per §4.8.
type snapshot struct {
	tick         uint64
	globalFree   float64
	globalEntropy float64
	universes    map[ids.UniverseID]*universe.Universe
	interactions map[ids.InteractionID]*interaction.Interaction
	materialized float64
	radiated     float64
}

// Kernel is the evolution-loop orchestrator.
type Kernel struct {
	log     log.Logger
	metrics *metrics.Kernel
	cfg     config.Parameters
	idGen   *ids.Generator

	universes    map[ids.UniverseID]*universe.Universe
	interactions map[ids.InteractionID]*interaction.Interaction
	field        *interaction.Field

	freePool      float64
	globalEntropy float64
	tick          uint64
	initialTotal  float64
	materialized  float64
	radiated      float64

	snapshots []snapshot

	drivers []driver.Driver
	aud     *auditor.Auditor

	shutdown bool
}

// New constructs a Kernel with the given initial free-energy pool.
// initialPool becomes the ledger baseline (initial_total in §3).
func New(cfg config.Parameters, initialPool float64, logger log.Logger, reg prometheus.Registerer) *Kernel {
	return &Kernel{
		log:          logger,
		metrics:      metrics.New(reg),
		cfg:          cfg,
		idGen:        ids.NewGenerator(),
		universes:    make(map[ids.UniverseID]*universe.Universe),
		interactions: make(map[ids.InteractionID]*interaction.Interaction),
		field:        interaction.NewField(),
		freePool:     initialPool,
		initialTotal: initialPool,
		aud:          auditor.New(cfg.AuditEpsilon),
	}
}

// SpawnUniverse draws energy from the free pool to create a new
// universe.
func (k *Kernel) SpawnUniverse(energy float64) (ids.UniverseID, error) {
	if energy > k.freePool {
		return 0, fmt.Errorf("%w: have %.4f, need %.4f", ErrInsufficientEnergy, k.freePool, energy)
	}
	id := k.idGen.NextUniverse()
	k.universes[id] = universe.New(id, energy, k.tick)
	k.freePool -= energy
	k.log.Debug("universe spawned", "id", id, "energy", energy)
	return id, nil
}

// CreateInteraction links two existing universes with the given
// coupling and decay rate.
func (k *Kernel) CreateInteraction(source, target ids.UniverseID, coupling, decay float64) (ids.InteractionID, error) {
	src, ok := k.universes[source]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUniverseNotFound, source)
	}
	tgt, ok := k.universes[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUniverseNotFound, target)
	}
	id := k.idGen.NextInteraction()
	it, err := interaction.New(id, source, target, coupling, decay)
	if err != nil {
		return 0, err
	}
	k.interactions[id] = it
	k.field.Register(it)
	src.AddInteraction(id)
	tgt.AddInteraction(id)
	return id, nil
}

// LoadProgram writes bytecode into a universe's memory starting at
// address 0 and resets its instruction pointer there.
func (k *Kernel) LoadProgram(u ids.UniverseID, bytecode []byte) error {
	univ, ok := k.universes[u]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUniverseNotFound, u)
	}
	if len(bytecode) > universe.MemSize {
		return fmt.Errorf("kernel: program of %d bytes exceeds %d-byte memory", len(bytecode), universe.MemSize)
	}
	copy(univ.Memory[:], bytecode)
	univ.IP = 0
	return nil
}

// RegisterDriver adds d to the kernel's driver list, synced once per
// tick at pipeline step 11.
func (k *Kernel) RegisterDriver(d driver.Driver) {
	k.drivers = append(k.drivers, d)
}

// Universe returns a read-only view of a live universe.
func (k *Kernel) Universe(id ids.UniverseID) (*universe.Universe, bool) {
	u, ok := k.universes[id]
	return u, ok
}

// CurrentTick returns the current evolution-tick counter.
func (k *Kernel) CurrentTick() uint64 { return k.tick }

// UniverseCount returns the number of currently live universes.
func (k *Kernel) UniverseCount() int { return len(k.universes) }

// Shutdown reports whether a driver has raised a Shutdown pulse that a
// completed Tick has already applied.
func (k *Kernel) Shutdown() bool { return k.shutdown }

// FreeEnergy returns the current global free-energy pool.
func (k *Kernel) FreeEnergy() float64 { return k.freePool }

// GlobalEntropy returns the current global entropy.
func (k *Kernel) GlobalEntropy() float64 { return k.globalEntropy }

// LedgerTotal computes the I1 left-hand side: free pool plus every
// live universe's energy plus every interaction's in-transit energy.
func (k *Kernel) LedgerTotal() float64 {
	total := k.freePool
	for _, u := range k.universes {
		total += u.Energy
	}
	for _, it := range k.interactions {
		total += it.InTransitEnergy()
	}
	return total
}

// ConservationDrift returns |LedgerTotal + radiated - materialized - initialTotal|, the I1 check.
func (k *Kernel) ConservationDrift() float64 {
	lhs := k.LedgerTotal() + k.radiated - k.materialized
	return math.Abs(lhs - k.initialTotal)
}

// Tick runs the fixed 14-step evolution pipeline once, per §4.6. A tick
// that runs longer than cfg.TickBudget is logged as a warning (but
// never aborted — the pipeline always runs to completion) once it
// finishes.
func (k *Kernel) Tick() error {
	start := time.Now()
	k.tick++
	prevEntropy := k.globalEntropy

	// 3. Decay every interaction.
	for _, it := range k.interactions {
		it.ApplyDecay()
	}

	// 4. Recompute momentum and transfer energy across active interactions.
	k.applyInteractionTransfers()

	// 5. Propagate arrived events, crediting payload energy to targets.
	k.propagateArrivals()

	// 6-7. Schedule and evolve.
	k.evolveScheduled()

	// 9. Collapse unstable universes.
	k.collapseUnstable()

	// 10. Snapshot.
	k.recordSnapshot()

	// 11-12. Drive drivers.
	pulse := k.syncDrivers()

	// 13. Auditor pass.
	k.runAuditor()

	// 14. Verify I1/I2.
	if drift := k.ConservationDrift(); drift > k.cfg.ConservationEpsilon {
		k.log.Warn("conservation drift exceeds per-tick epsilon", "drift", drift, "tick", k.tick)
	}
	if k.globalEntropy < prevEntropy-k.cfg.ConservationEpsilon {
		k.log.Warn("global entropy decreased", "prev", prevEntropy, "current", k.globalEntropy, "tick", k.tick)
	}

	k.applyPulse(pulse)

	elapsed := time.Since(start)
	if k.cfg.TickBudget > 0 && elapsed > k.cfg.TickBudget {
		k.log.Warn("tick exceeded its budget", "elapsed", elapsed, "budget", k.cfg.TickBudget, "tick", k.tick)
	}

	if k.metrics != nil {
		k.metrics.TickDuration.Observe(elapsed.Seconds())
		k.metrics.GlobalEntropy.Set(k.globalEntropy)
		k.metrics.GlobalFreeEnergy.Set(k.freePool)
		k.metrics.UniverseCount.Set(float64(len(k.universes)))
		k.metrics.InteractionCount.Set(float64(len(k.interactions)))
		k.metrics.ConservationDrift.Set(k.ConservationDrift())
	}
	return nil
}

// applyInteractionTransfers is pipeline step 4: recompute momentum from
// endpoint energies, gather a pending transfer per active interaction,
// then apply every pending transfer atomically, checking the total
// energy across the touched universes is conserved across the batch.
func (k *Kernel) applyInteractionTransfers() {
	type pending struct {
		it       *interaction.Interaction
		src, tgt *universe.Universe
		amount   float64
	}
	var pendings []pending
	preTotal := 0.0
	for _, it := range k.interactions {
		if !it.IsActiveAt(k.cfg.CouplingDeactivate) {
			continue
		}
		src, okSrc := k.universes[it.Source]
		tgt, okTgt := k.universes[it.Target]
		if !okSrc || !okTgt {
			continue
		}
		it.SetMomentum(src.Energy, tgt.Energy)
		amount := it.CalculateEnergyTransfer(0.01)
		if math.Abs(amount) <= k.cfg.TransferEpsilon {
			continue
		}
		pendings = append(pendings, pending{it: it, src: src, tgt: tgt, amount: amount})
		preTotal += src.Energy + tgt.Energy
	}

	postTotal := 0.0
	for _, p := range pendings {
		amount := p.amount
		// amount > 0 means energy flows source -> target.
		if amount > 0 && p.src.Energy < amount {
			amount = p.src.Energy
		} else if amount < 0 && p.tgt.Energy < -amount {
			amount = -p.tgt.Energy
		}
		_ = p.src.TransferEnergy(-amount)
		_ = p.tgt.TransferEnergy(amount)
		p.it.CumulativeTransferred += math.Abs(amount)
		postTotal += p.src.Energy + p.tgt.Energy
	}
	if len(pendings) > 0 && math.Abs(postTotal-preTotal) > k.cfg.ConservationEpsilon {
		k.log.Warn("interaction transfer batch drifted, aborting conservation check", "pre", preTotal, "post", postTotal)
	}
}

// propagateArrivals is pipeline step 5.
func (k *Kernel) propagateArrivals() {
	for _, it := range k.interactions {
		for _, ev := range it.ProcessEvents(k.tick) {
			if tgt, ok := k.universes[ev.Target]; ok {
				_ = tgt.TransferEnergy(ev.Payload)
			} else {
				k.freePool += ev.Payload
			}
		}
	}
}

// evolveScheduled is pipeline steps 6-7: build a scheduling candidate
// per live universe, order them by Gravity Scheduler priority, then
// advance each scheduled universe by exactly one VM step. Any emitted
// event has its payload debited from the source universe immediately
// (clamped to what's left, per §4.2's "payload debited at emission"
// rule) and is queued for routing once every universe has stepped.
func (k *Kernel) evolveScheduled() {
	candidates := make([]scheduler.Candidate, 0, len(k.universes))
	for id, u := range k.universes {
		var pressure float64
		for _, iid := range u.Interactions.List() {
			if it, ok := k.interactions[iid]; ok {
				pressure += it.Coupling * math.Abs(it.Momentum)
			}
		}
		if got, want := k.field.Density(id), u.Interactions.Len(); got != want {
			k.log.Warn("field adjacency diverged from universe attachment set",
				"universe", id, "field_density", got, "attached", want)
		}
		candidates = append(candidates, scheduler.Candidate{
			UniverseID: id,
			Stability:  u.Stability,
			Entropy:    u.Entropy,
			Resistance: u.InternalResistance(),
			Pressure:   pressure,
		})
	}

	ordered, dropped := scheduler.Schedule(candidates, k.cfg.SchedulerCutoff)
	if k.metrics != nil {
		k.metrics.ScheduledPerTick.Set(float64(len(ordered)))
	}
	if dropped > 0 {
		k.log.Debug("scheduler dropped universes below cutoff", "dropped", dropped, "tick", k.tick)
	}

	byID := make(map[ids.UniverseID]scheduler.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.UniverseID] = c
	}

	var pending []event.Event
	for _, id := range ordered {
		u, ok := k.universes[id]
		if !ok {
			continue // collapsed earlier this tick
		}
		u.AdvanceTime()
		u.IncreaseEntropy(scheduler.Priority(byID[id]) * 0.1)
		u.UpdateStability()
		u.LastEvolved = k.tick

		res := vm.Step(&u.Memory, u.IP, u.ID, k.tick)
		u.IP = res.NextIP

		cost := math.Min(res.Cost, u.Energy)
		_ = u.TransferEnergy(-cost)
		k.freePool += cost

		if res.Event == nil {
			continue
		}
		ev := *res.Event
		ev.ID = k.idGen.NextEvent()
		ev.Source = id
		payload := math.Min(ev.Payload, u.Energy)
		_ = u.TransferEnergy(-payload)
		ev.Payload = payload
		pending = append(pending, ev)
	}

	for _, ev := range pending {
		if err := k.routeEvent(ev); err != nil {
			k.log.Warn("event routing failed", "tag", ev.Tag, "source", ev.Source, "err", err)
		}
	}
}

// routeEvent is pipeline step 8, per §4.7. Entangle, Observation,
// Reversion and Branch each get bespoke handling; every other tag
// either rides an existing interaction toward its target, is delivered
// directly if the target universe is local but unlinked, or radiates
// across the node boundary.
func (k *Kernel) routeEvent(ev event.Event) error {
	switch ev.Tag {
	case event.Branch:
		k.routeBranch(ev)
		return nil
	case event.Entangle:
		return k.routeEntangle(ev)
	case event.Observation:
		return k.routeObservation(ev)
	case event.Reversion:
		return k.routeReversion(ev)
	default:
		return k.routeGeneric(ev)
	}
}

// routeBranch implements the Branch special case. Universe.Branch
// performs its own structural 50/50 split (per lifecycle.rs), but the
// event's payload — already debited from the parent at emission time —
// is the child's real energy endowment, not the structural half.
// The structural half plus the memory cost Branch deducted are
// recycled back to the free pool so no energy is double-counted.
func (k *Kernel) routeBranch(ev event.Event) {
	parent, ok := k.universes[ev.Source]
	if !ok {
		k.freePool += ev.Payload
		return
	}
	var dst byte
	if len(ev.Data) > 0 {
		dst = ev.Data[0]
	}

	childID := k.idGen.NextUniverse()
	child, err := parent.Branch(childID, k.cfg.BranchMinEnergy, k.cfg.BranchMemoryCost, k.tick)
	if err != nil {
		k.freePool += ev.Payload
		k.log.Debug("branch declined, insufficient energy", "source", ev.Source, "err", err)
		return
	}

	recycled := child.Energy + k.cfg.BranchMemoryCost
	child.Energy = ev.Payload
	k.freePool += recycled

	k.universes[childID] = child
	parent.Memory[dst] = xmath.ClampByte(float64(childID))
	k.log.Debug("universe branched", "parent", ev.Source, "child", childID, "energy", ev.Payload)
}

// routeEntangle creates a new interaction between source and target
// with coupling derived from the entangle strength carried as payload.
func (k *Kernel) routeEntangle(ev event.Event) error {
	if _, ok := k.universes[ev.Source]; !ok {
		k.freePool += ev.Payload
		return fmt.Errorf("%w: entangle source %s", ErrUniverseNotFound, ev.Source)
	}
	if _, ok := k.universes[ev.Target]; !ok {
		k.freePool += ev.Payload
		return fmt.Errorf("%w: entangle target %s", ErrUniverseNotFound, ev.Target)
	}
	coupling := xmath.Clamp(ev.Payload/10, 0, 1)
	if _, err := k.CreateInteraction(ev.Source, ev.Target, coupling, entangleDecayDefault); err != nil {
		k.freePool += ev.Payload
		return err
	}
	k.freePool += ev.Payload // entangling carries no energy transfer of its own
	return nil
}

// routeObservation reads the requested scalar off the target universe
// and writes it into the source universe's own memory at the
// requested address.
func (k *Kernel) routeObservation(ev event.Event) error {
	src, ok := k.universes[ev.Source]
	if !ok {
		k.freePool += ev.Payload
		return fmt.Errorf("%w: observation source %s", ErrUniverseNotFound, ev.Source)
	}
	tgt, ok := k.universes[ev.Target]
	if !ok {
		k.freePool += ev.Payload
		return fmt.Errorf("%w: observation target %s", ErrUniverseNotFound, ev.Target)
	}
	if len(ev.Data) < 2 {
		k.freePool += ev.Payload
		return fmt.Errorf("kernel: malformed observation event from %s", ev.Source)
	}
	kind, dst := ev.Data[0], ev.Data[1]
	src.Memory[dst] = tgt.Observe(kind)
	k.freePool += ev.Payload
	return nil
}

// routeReversion triggers a kernel-wide rewind by the requested number
// of ticks (minimum 1).
func (k *Kernel) routeReversion(ev event.Event) error {
	k.freePool += ev.Payload
	if len(ev.Data) < 1 {
		return fmt.Errorf("kernel: malformed reversion event from %s", ev.Source)
	}
	steps := uint64(ev.Data[0])
	if steps == 0 {
		steps = 1
	}
	return k.Rewind(steps)
}

// routeGeneric handles Signal, EnergyTransfer, StateMigration and
// Cancellation: push onto an existing interaction if one links the two
// endpoints, deliver directly if the target is local but unlinked
// (logged as a spontaneous entanglement, per the original prototype),
// or radiate across the node boundary to a driver.
func (k *Kernel) routeGeneric(ev event.Event) error {
	if it, ok := k.findInteraction(ev.Source, ev.Target); ok {
		return it.Push(ev, k.tick)
	}
	if tgt, ok := k.universes[ev.Target]; ok {
		if _, reachable := k.field.FindPath(ev.Source, ev.Target); !reachable {
			k.log.Warn("NoPathForSignal: delivering across no causal chain of interactions",
				"source", ev.Source, "target", ev.Target, "tag", ev.Tag)
		}
		k.log.Debug("spontaneous entanglement: delivering event with no backing interaction",
			"source", ev.Source, "target", ev.Target, "tag", ev.Tag)
		_ = tgt.TransferEnergy(ev.Payload)
		return nil
	}
	if !ev.Target.IsLocal() && len(k.drivers) > 0 {
		driverEv := driver.Event{Tag: uint8(ev.Tag), Source: ev.Source, Target: ev.Target, Payload: ev.Payload, Data: ev.Data}
		for _, d := range k.drivers {
			d.HandleEvent(driverEv)
		}
		k.radiated += ev.Payload
		if k.metrics != nil {
			k.metrics.EnergyRadiated.Add(ev.Payload)
		}
		return nil
	}
	k.radiated += ev.Payload
	if k.metrics != nil {
		k.metrics.EnergyRadiated.Add(ev.Payload)
	}
	return fmt.Errorf("%w: event target %s unroutable", ErrUniverseNotFound, ev.Target)
}

func (k *Kernel) findInteraction(a, b ids.UniverseID) (*interaction.Interaction, bool) {
	for _, it := range k.interactions {
		if (it.Source == a && it.Target == b) || (it.Source == b && it.Target == a) {
			return it, true
		}
	}
	return nil, false
}

// collapseUnstable is pipeline step 9: any universe whose stability
// fell below CollapseStability returns its remaining energy to the
// pool and its entropy to the global total, and is removed along with
// every interaction attached to it.
func (k *Kernel) collapseUnstable() {
	var collapsed []ids.UniverseID
	for id, u := range k.universes {
		if u.Stability >= k.cfg.CollapseStability {
			continue
		}
		collapsed = append(collapsed, id)
	}
	k.collapseUniverses(collapsed)
}

// collapseUniverses implements the common collapse mechanics shared by
// the stability-threshold collapse (pipeline step 9) and the auditor's
// anomaly-triggered collapse (pipeline step 13, P4): return remaining
// energy to the pool, add entropy to the global total, detach every
// interaction still referencing the universe, and remove it.
func (k *Kernel) collapseUniverses(collapsed []ids.UniverseID) {
	for _, id := range collapsed {
		u, ok := k.universes[id]
		if !ok {
			continue
		}
		k.freePool += math.Max(u.Energy, 0)
		k.globalEntropy += u.Entropy
		for _, iid := range u.Interactions.List() {
			it, ok := k.interactions[iid]
			if !ok {
				continue
			}
			other := it.Target
			if other == id {
				other = it.Source
			}
			if ow, ok := k.universes[other]; ok {
				ow.RemoveInteraction(iid)
			}
			k.field.Remove(iid, it.Source, it.Target)
			delete(k.interactions, iid)
		}
		delete(k.universes, id)
		k.aud.Forget(id)
		if k.metrics != nil {
			k.metrics.CollapsedTotal.Inc()
		}
		k.log.Debug("universe collapsed", "id", id, "tick", k.tick)
	}
}

// cloneInteraction deep-copies it, including both directional queues,
// for the snapshot ring buffer and Rewind.
func cloneInteraction(it *interaction.Interaction) *interaction.Interaction {
	c := *it
	c.Forward = it.Forward.Clone()
	c.Backward = it.Backward.Clone()
	return &c
}

// recordSnapshot is pipeline step 10: append a deep-cloned copy of live
// state to the ring buffer, evicting the oldest entry past capacity
// (I6).
func (k *Kernel) recordSnapshot() {
	snap := snapshot{
		tick:          k.tick,
		globalFree:    k.freePool,
		globalEntropy: k.globalEntropy,
		universes:     make(map[ids.UniverseID]*universe.Universe, len(k.universes)),
		interactions:  make(map[ids.InteractionID]*interaction.Interaction, len(k.interactions)),
		materialized:  k.materialized,
		radiated:      k.radiated,
	}
	for id, u := range k.universes {
		snap.universes[id] = u.Clone()
	}
	for id, it := range k.interactions {
		snap.interactions[id] = cloneInteraction(it)
	}
	k.snapshots = append(k.snapshots, snap)
	if capacity := k.cfg.SnapshotCapacity; capacity > 0 && len(k.snapshots) > capacity {
		k.snapshots = k.snapshots[len(k.snapshots)-capacity:]
	}
}

// syncDrivers is pipeline steps 11-12: sync every driver once with a
// read-only view of live universes, route whatever each driver emits
// (crediting its payload to materialized), and resolve a single system
// pulse — the last non-None pulse among drivers wins, per §6.
func (k *Kernel) syncDrivers() driver.Pulse {
	views := make([]driver.UniverseView, 0, len(k.universes))
	for _, u := range k.universes {
		views = append(views, driver.UniverseView{ID: u.ID, Energy: u.Energy, Entropy: u.Entropy, Stability: u.Stability, Clock: u.Clock})
	}

	winner := driver.Pulse{Kind: driver.PulseNone}
	for _, d := range k.drivers {
		emitted, pulse := d.Sync(k.tick, views)
		for _, de := range emitted {
			ev := event.Event{
				ID:      k.idGen.NextEvent(),
				Tag:     event.Tag(de.Tag),
				Source:  de.Source,
				Target:  de.Target,
				Payload: de.Payload,
				Data:    de.Data,
				Created: k.tick,
			}
			k.materialized += ev.Payload
			if k.metrics != nil {
				k.metrics.EnergyMaterialized.Add(ev.Payload)
			}
			if err := k.routeEvent(ev); err != nil {
				k.log.Warn("driver event routing failed", "driver", d.Name(), "err", err)
			}
		}
		if pulse.Kind != driver.PulseNone {
			winner = pulse
		}
	}
	return winner
}

// applyPulse acts on the system pulse syncDrivers resolved.
func (k *Kernel) applyPulse(p driver.Pulse) {
	switch p.Kind {
	case driver.PulseNone:
		return
	case driver.PulseRewind:
		steps := uint64(p.Amount)
		if steps == 0 {
			steps = 1
		}
		if err := k.Rewind(steps); err != nil {
			k.log.Warn("driver-requested rewind failed", "err", err)
		}
	case driver.PulseCollapseAll:
		for id, u := range k.universes {
			k.freePool += math.Max(u.Energy, 0)
			k.globalEntropy += u.Entropy
			k.aud.Forget(id)
			if k.metrics != nil {
				k.metrics.CollapsedTotal.Inc()
			}
		}
		k.universes = make(map[ids.UniverseID]*universe.Universe)
		k.interactions = make(map[ids.InteractionID]*interaction.Interaction)
		k.field = interaction.NewField()
	case driver.PulseSabotage:
		if u, ok := k.universes[p.UniverseID]; ok {
			drained := math.Min(p.Amount, u.Energy)
			_ = u.TransferEnergy(-drained)
			k.freePool += drained
			u.IncreaseEntropy(drained * 0.1)
		}
	case driver.PulseShutdown:
		k.shutdown = true
	}
}

// runAuditor is pipeline step 13: an anomaly scan plus the global
// ledger check, per §4.9. Any universe the anomaly scan flags
// (negative-energy breach or stability injection) is collapsed, per
// P4/§4.9's "the kernel collapses flagged universes" — the ledger
// (conservation-drift) and entropy-regression warnings are logged but
// never trigger a collapse on their own.
func (k *Kernel) runAuditor() {
	snaps := make([]auditor.UniverseSnapshot, 0, len(k.universes))
	for _, u := range k.universes {
		snaps = append(snaps, auditor.UniverseSnapshot{ID: u.ID, Energy: u.Energy, Entropy: u.Entropy, Stability: u.Stability})
	}
	baseline := k.initialTotal + k.materialized - k.radiated
	warnings := k.aud.Audit(snaps, baseline, k.LedgerTotal())
	var flagged []ids.UniverseID
	for _, w := range warnings {
		k.log.Warn("audit warning", "kind", w.Kind, "subject", w.Subject, "detail", w.Detail)
		if k.metrics != nil {
			k.metrics.AuditWarnings.Inc()
		}
		if w.Kind == "negative-energy" || w.Kind == "stability-injection" {
			flagged = append(flagged, w.Subject)
		}
	}
	k.collapseUniverses(flagged)
}

// Rewind restores live state to the snapshot at ring-buffer index
// len-max(steps,1), per §4.8, truncating every later snapshot. Since the
// newest snapshot is the current tick's own, steps=1 restores the
// current tick and steps=n lands n-1 ticks behind it.
// Driver-side state (e.g. archived records, open connections) is never
// rolled back.
func (k *Kernel) Rewind(steps uint64) error {
	if steps == 0 {
		steps = 1
	}
	if len(k.snapshots) == 0 {
		return fmt.Errorf("kernel: no snapshots available to rewind")
	}
	idx := len(k.snapshots) - int(steps)
	if idx < 0 {
		idx = 0
	}
	snap := k.snapshots[idx]

	k.universes = make(map[ids.UniverseID]*universe.Universe, len(snap.universes))
	for id, u := range snap.universes {
		k.universes[id] = u.Clone()
	}
	k.field = interaction.NewField()
	k.interactions = make(map[ids.InteractionID]*interaction.Interaction, len(snap.interactions))
	for id, it := range snap.interactions {
		c := cloneInteraction(it)
		k.interactions[id] = c
		k.field.Register(c)
	}
	k.freePool = snap.globalFree
	k.globalEntropy = snap.globalEntropy
	k.materialized = snap.materialized
	k.radiated = snap.radiated
	k.tick = snap.tick
	k.snapshots = k.snapshots[:idx+1]
	return nil
}

// Run advances the kernel up to maxTicks times, stopping early once a
// driver raises a shutdown pulse — honored only after the tick that
// raised it finishes, per §5's cooperative execution model.
func (k *Kernel) Run(maxTicks uint64) error {
	for i := uint64(0); i < maxTicks; i++ {
		if err := k.Tick(); err != nil {
			return err
		}
		if k.shutdown {
			return nil
		}
	}
	return nil
}
