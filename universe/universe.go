// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package universe implements the per-workload state machine: memory,
// energy, entropy, stability, and local clock, plus the lifecycle
// operations the kernel drives it through (spec §3, §4.1).
package universe

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethcocoder/universos/ids"
	"github.com/ethcocoder/universos/set"
	"github.com/ethcocoder/universos/xmath"
)

// MemSize is the VM's byte-addressable memory window.
const MemSize = 256

// StackPointerAddr is the reserved memory byte holding the stack
// pointer register.
const StackPointerAddr = 255

// initialStackPointer is the value the stack pointer starts at; the
// stack grows downward from here.
const initialStackPointer = 254

var (
	// ErrInsufficientEnergy is a resource error: the requested energy
	// delta would drive energy negative.
	ErrInsufficientEnergy = errors.New("universe: insufficient energy")
	// ErrBranchInsufficientEnergy is returned by Branch when the parent
	// can't afford the minimum branch cost.
	ErrBranchInsufficientEnergy = errors.New("universe: insufficient energy to branch")
)

// InvalidEntropyDeltaError is a programmer-contract violation: entropy
// may never decrease. Per spec §7, this is the one class of error the
// kernel panics on rather than propagating.
type InvalidEntropyDeltaError struct{ Delta float64 }

func (e *InvalidEntropyDeltaError) Error() string {
	return fmt.Sprintf("universe: entropy delta %.6f must be >= 0", e.Delta)
}

// Universe holds one workload's full state.
type Universe struct {
	ID           ids.UniverseID
	Memory       [MemSize]byte
	IP           byte
	Energy       float64
	Entropy      float64
	Stability    float64
	Clock        uint64
	CreatedTick  uint64
	LastEvolved  uint64
	Interactions set.Set[ids.InteractionID]
}

// New creates a universe with the given starting energy, entropy 0 and
// stability 1, per §4.1. The stack pointer register is initialized to
// initialStackPointer.
func New(id ids.UniverseID, energy float64, createdTick uint64) *Universe {
	u := &Universe{
		ID:           id,
		Energy:       energy,
		Stability:    1,
		CreatedTick:  createdTick,
		LastEvolved:  createdTick,
		Interactions: set.NewSet[ids.InteractionID](0),
	}
	u.Memory[StackPointerAddr] = initialStackPointer
	return u
}

// AddInteraction records iid in the attached set.
func (u *Universe) AddInteraction(iid ids.InteractionID) {
	u.Interactions.Add(iid)
}

// RemoveInteraction drops iid from the attached set.
func (u *Universe) RemoveInteraction(iid ids.InteractionID) {
	u.Interactions.Remove(iid)
}

// TransferEnergy applies delta atomically. A negative delta that would
// drive Energy below zero fails with ErrInsufficientEnergy and leaves
// Energy unchanged.
func (u *Universe) TransferEnergy(delta float64) error {
	if delta < 0 && u.Energy < -delta {
		return fmt.Errorf("%w: have %.4f, need %.4f", ErrInsufficientEnergy, u.Energy, -delta)
	}
	u.Energy += delta
	return nil
}

// IncreaseEntropy adds d, which must be non-negative. A negative d is
// a programmer-contract violation and panics, per §7.
func (u *Universe) IncreaseEntropy(d float64) {
	if d < 0 {
		panic(&InvalidEntropyDeltaError{Delta: d})
	}
	u.Entropy += d
}

// AdvanceTime adds ceil(1/(1+density)) to the local clock, where
// density is the attached-interaction count. Since 1/(1+density) lies
// in (0,1] for every density, the ceiling is always 1: each call
// advances the clock by exactly 1, whatever the density.
func (u *Universe) AdvanceTime() {
	density := float64(u.Interactions.Len())
	u.Clock += uint64(math.Ceil(1 / (1 + density)))
}

// UpdateStability recomputes Stability from Energy and Entropy.
func (u *Universe) UpdateStability() {
	u.Stability = xmath.Clamp(math.Exp(-0.01*u.Entropy)*xmath.Min(u.Energy/100, 1), 0, 1)
}

// InternalResistance returns entropy * (1 - stability), the scheduler's
// inertia term.
func (u *Universe) InternalResistance() float64 {
	return u.Entropy * (1 - u.Stability)
}

// Branch splits off a child universe. It requires Energy >=
// BranchMinEnergy + memoryCost; memoryCost is deducted from the parent
// first, then the remainder is split 50/50 between parent and child.
// The child gets a deep copy of memory, the parent's entropy at the
// moment of branching, stability 0.5, and an empty attached set; the
// parent's own entropy then increases by 1.0.
func (u *Universe) Branch(childID ids.UniverseID, minEnergy, memoryCost float64, tick uint64) (*Universe, error) {
	if u.Energy < minEnergy+memoryCost {
		return nil, fmt.Errorf("%w: have %.4f, need %.4f", ErrBranchInsufficientEnergy, u.Energy, minEnergy+memoryCost)
	}
	u.Energy -= memoryCost
	half := u.Energy / 2
	u.Energy = half

	child := &Universe{
		ID:           childID,
		Memory:       u.Memory,
		IP:           0,
		Energy:       half,
		Entropy:      u.Entropy,
		Stability:    0.5,
		Clock:        0,
		CreatedTick:  tick,
		LastEvolved:  tick,
		Interactions: set.NewSet[ids.InteractionID](0),
	}
	u.IncreaseEntropy(1.0)
	return child, nil
}

// Snapshot is an immutable clone of a universe's state sufficient for
// Restore, per §4.8.
type Snapshot struct {
	Memory    [MemSize]byte
	IP        byte
	Energy    float64
	Entropy   float64
	Stability float64
	Clock     uint64
}

// Snapshot captures the universe's current state.
func (u *Universe) Snapshot() Snapshot {
	return Snapshot{
		Memory:    u.Memory,
		IP:        u.IP,
		Energy:    u.Energy,
		Entropy:   u.Entropy,
		Stability: u.Stability,
		Clock:     u.Clock,
	}
}

// Restore overwrites memory/IP/energy/stability/clock from snap.
// Entropy is set to max(current, snap.Entropy) to preserve I2 (entropy
// monotonicity) across a rewind.
func (u *Universe) Restore(snap Snapshot) {
	u.Memory = snap.Memory
	u.IP = snap.IP
	u.Energy = snap.Energy
	u.Stability = snap.Stability
	u.Clock = snap.Clock
	if snap.Entropy > u.Entropy {
		u.Entropy = snap.Entropy
	}
}

// CanMergeWith reports whether u and other are compatible enough to
// merge: both stabilities >= 0.7, energy ratio >= 0.8, relative
// entropy gap <= 0.3, clock gap <= 10.
func (u *Universe) CanMergeWith(other *Universe) bool {
	if u.Stability < 0.7 || other.Stability < 0.7 {
		return false
	}
	ratio := xmath.Min(u.Energy, other.Energy) / xmath.Max(u.Energy, other.Energy)
	if math.IsNaN(ratio) || ratio < 0.8 {
		return false
	}
	maxEntropy := xmath.Max(u.Entropy, other.Entropy)
	if maxEntropy > 0 {
		gap := xmath.AbsDiff(u.Entropy, other.Entropy) / maxEntropy
		if gap > 0.3 {
			return false
		}
	}
	var clockGap uint64
	if u.Clock > other.Clock {
		clockGap = u.Clock - other.Clock
	} else {
		clockGap = other.Clock - u.Clock
	}
	return clockGap <= 10
}

// Clone returns a deep copy, used by the kernel's snapshot ring buffer.
func (u *Universe) Clone() *Universe {
	c := *u
	c.Interactions = u.Interactions.Clone()
	return &c
}

// Observe reads one of the universe's scalar attributes as a byte,
// per §4.7's Observation kinds: 0 energy/10, 1 entropy/10, 2
// stability*255. The result is rounded and clamped to [0,255] rather
// than wrapped modulo 256.
func (u *Universe) Observe(kind byte) byte {
	switch kind {
	case 0:
		return xmath.ClampByte(u.Energy / 10)
	case 1:
		return xmath.ClampByte(u.Entropy / 10)
	case 2:
		return xmath.ClampByte(u.Stability * 255)
	default:
		return 0
	}
}
