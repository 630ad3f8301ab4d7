// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package interaction implements typed channels between universes:
// coupling, momentum, decay, and the two directional event queues that
// carry traffic between a source and a target, per spec §3 and §4.4.
package interaction

import (
	"errors"
	"fmt"

	"github.com/ethcocoder/universos/event"
	"github.com/ethcocoder/universos/ids"
)

var (
	// ErrInvalidCoupling is returned by New when coupling is outside [0,1].
	ErrInvalidCoupling = errors.New("interaction: coupling must be in [0,1]")
	// ErrMissingEndpoint is returned by Push when an event's source/target
	// pair doesn't match either direction of the interaction.
	ErrMissingEndpoint = errors.New("interaction: event does not match either endpoint")
)

// deactivateThreshold is exported via config in the kernel; this local
// constant is only used by IsActive's package-level default and is
// overridden by the kernel using config.Parameters.CouplingDeactivate
// when it calls IsActiveAt.
const deactivateThreshold = 1e-3

// Interaction is a directed-pair channel: forward carries source-to-
// target traffic, backward carries target-to-source traffic.
type Interaction struct {
	ID                    ids.InteractionID
	Source                ids.UniverseID
	Target                ids.UniverseID
	Coupling              float64
	Momentum              float64
	Decay                 float64
	Age                   uint64
	CumulativeTransferred float64
	Forward               *event.Queue
	Backward              *event.Queue
}

// New constructs an Interaction. Coupling must be in [0,1].
func New(id ids.InteractionID, source, target ids.UniverseID, coupling, decay float64) (*Interaction, error) {
	if coupling < 0 || coupling > 1 {
		return nil, fmt.Errorf("%w: got %.4f", ErrInvalidCoupling, coupling)
	}
	return &Interaction{
		ID:       id,
		Source:   source,
		Target:   target,
		Coupling: coupling,
		Decay:    decay,
		Forward:  &event.Queue{},
		Backward: &event.Queue{},
	}, nil
}

// Push routes ev into the forward queue if it travels source->target,
// the backward queue if target->source, or fails if neither endpoint
// matches.
func (it *Interaction) Push(ev event.Event, tick uint64) error {
	switch {
	case ev.Source == it.Source && ev.Target == it.Target:
		it.Forward.Push(ev, tick)
	case ev.Source == it.Target && ev.Target == it.Source:
		it.Backward.Push(ev, tick)
	default:
		return fmt.Errorf("%w: source=%s target=%s on interaction %s<->%s",
			ErrMissingEndpoint, ev.Source, ev.Target, it.Source, it.Target)
	}
	return nil
}

// ProcessEvents drains both directional queues at tick and returns the
// combined arrivals, forward events first.
func (it *Interaction) ProcessEvents(tick uint64) []event.Event {
	out := it.Forward.Drain(tick)
	out = append(out, it.Backward.Drain(tick)...)
	return out
}

// ApplyDecay reduces coupling by its decay rate and ages the
// interaction by one tick.
func (it *Interaction) ApplyDecay() {
	it.Coupling *= 1 - it.Decay
	if it.Coupling < 0 {
		it.Coupling = 0
	}
	it.Age++
}

// CalculateEnergyTransfer returns the energy this interaction would
// move for the given fraction of momentum, scaled by coupling.
func (it *Interaction) CalculateEnergyTransfer(fraction float64) float64 {
	return it.Coupling * it.Momentum * fraction
}

// SetMomentum recomputes momentum from the current energy imbalance
// between the two endpoints.
func (it *Interaction) SetMomentum(sourceEnergy, targetEnergy float64) {
	it.Momentum = (sourceEnergy - targetEnergy) * it.Coupling * 0.01
}

// InTransitEnergy sums the payload energy queued in both directions.
func (it *Interaction) InTransitEnergy() float64 {
	return it.Forward.InTransitEnergy() + it.Backward.InTransitEnergy()
}

// IsActive reports whether coupling is still above the deactivation
// threshold.
func (it *Interaction) IsActive() bool {
	return it.Coupling > deactivateThreshold
}

// IsActiveAt is IsActive parameterized on a caller-supplied threshold,
// used by the kernel with config.Parameters.CouplingDeactivate.
func (it *Interaction) IsActiveAt(threshold float64) bool {
	return it.Coupling > threshold
}
