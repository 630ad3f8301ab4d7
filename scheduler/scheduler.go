// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler implements the Gravity Scheduler: a priority queue
// that orders universes for evolution each tick by a composite score
// of stability, entropy, and causal pressure against internal
// resistance, per spec §4.5. The underlying heap uses container/heap,
// the same approach the reference pack's transaction-pool price-sort
// (core/types/transaction.go) takes for a comparable ordering problem.
package scheduler

import (
	"container/heap"

	"github.com/ethcocoder/universos/ids"
)

// cutoff below which a candidate's priority is considered negligible
// and the universe is skipped for the tick, counted in dropped.
const defaultCutoff = 1e-4

// Candidate is one universe's scheduling inputs for a single tick.
type Candidate struct {
	UniverseID ids.UniverseID
	Stability  float64
	Entropy    float64
	Resistance float64
	Pressure   float64
}

// Priority computes the Gravity Scheduler's composite score for a
// single candidate: stability dampened by entropy, scaled by the
// ratio of causal pressure to internal resistance (floored to avoid
// division blowup). Exported so callers that need the raw score
// alongside Schedule's ordering (e.g. the kernel's entropy-increment
// step) don't have to recompute the formula themselves.
func Priority(c Candidate) float64 { return priority(c) }

// pressureFloor mirrors the resistance floor: a universe with no
// attached interactions (or one whose endpoints are momentarily at
// energy parity) has Pressure == 0, and a bare pressure/resistance
// ratio would zero out its priority forever — starving it of any
// scheduled step even though §2 describes the VM executing "one
// instruction per universe per tick" as the baseline, with Gravity
// priority acting as a throttle under contention rather than a gate
// that can permanently exclude an isolated or momentarily-balanced
// universe. Flooring pressure the same way resistance is floored
// keeps that baseline tick alive without changing how interaction
// pressure differentiates busy universes from idle ones.
const pressureFloor = 1e-4

func priority(c Candidate) float64 {
	resistance := c.Resistance
	if resistance < 1e-4 {
		resistance = 1e-4
	}
	pressure := c.Pressure
	if pressure < pressureFloor {
		pressure = pressureFloor
	}
	p := c.Stability * (1 / (1 + 0.01*c.Entropy)) * (pressure / resistance)
	if p < 0 {
		p = 0
	}
	return p
}

type item struct {
	candidate Candidate
	priority  float64
	seq       int
}

// byPriority is a max-heap ordered by descending priority, breaking
// ties by insertion order (lower seq wins) so Schedule is deterministic.
type byPriority []*item

func (h byPriority) Len() int { return len(h) }
func (h byPriority) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h byPriority) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *byPriority) Push(x any)   { *h = append(*h, x.(*item)) }
func (h *byPriority) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Schedule orders candidates by descending Gravity Scheduler priority
// using the given cutoff (use config.Parameters.SchedulerCutoff in the
// kernel). Candidates whose priority falls at or below cutoff are
// excluded and counted in dropped.
func Schedule(candidates []Candidate, cutoff float64) (ordered []ids.UniverseID, dropped int) {
	if cutoff <= 0 {
		cutoff = defaultCutoff
	}
	h := make(byPriority, 0, len(candidates))
	for i, c := range candidates {
		p := priority(c)
		if p <= cutoff {
			dropped++
			continue
		}
		h = append(h, &item{candidate: c, priority: p, seq: i})
	}
	heap.Init(&h)

	ordered = make([]ids.UniverseID, 0, h.Len())
	for h.Len() > 0 {
		it := heap.Pop(&h).(*item)
		ordered = append(ordered, it.candidate.UniverseID)
	}
	return ordered, dropped
}
