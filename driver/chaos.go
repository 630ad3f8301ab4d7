// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package driver

import "math/rand"

// Chaos is the sabotage driver: every few ticks it picks a live
// universe and, past an intensity threshold, requests the kernel
// drain energy from it via a Sabotage pulse. Grounded on
// original_source/kernel/src/physics/drivers.rs's ChaosMonkeyDriver:
// acts on a fixed cadence and otherwise stays quiet. It does no
// logging of its own.
type Chaos struct {
	rng       *rand.Rand
	intensity float64
	every     uint64
}

// NewChaos returns a Chaos driver with the given intensity in [0,1]
// and a deterministic seed (a seed drawn from a real entropy source
// gives a nondeterministic run).
func NewChaos(intensity float64, seed int64) *Chaos {
	return &Chaos{
		rng:       rand.New(rand.NewSource(seed)),
		intensity: intensity,
		every:     5,
	}
}

func (c *Chaos) Name() string { return "chaos" }

// Sync acts once every 5 ticks. At intensity > 0.5 it targets a random
// live universe with a Sabotage pulse of intensity*25 energy. The pulse
// is its only output: neither Chaos nor the kernel's pulse handling
// logs it.
func (c *Chaos) Sync(tick uint64, universes []UniverseView) (emit []Event, pulse Pulse) {
	if tick%c.every != 0 || len(universes) == 0 {
		return nil, Pulse{}
	}
	if c.intensity <= 0.5 {
		return nil, Pulse{}
	}
	target := universes[c.rng.Intn(len(universes))].ID
	return nil, Pulse{Kind: PulseSabotage, UniverseID: target, Amount: c.intensity * 25.0}
}

func (c *Chaos) HandleEvent(Event) {}

func (c *Chaos) PendingEnergy() float64 { return 0 }
