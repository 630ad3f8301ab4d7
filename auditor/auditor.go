// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auditor implements the kernel's security and conservation
// auditor: a periodic anomaly scan plus a global energy-ledger
// integrity check, per spec §4.9. It never mutates kernel state; it
// only observes and reports.
package auditor

import (
	"fmt"

	"github.com/ethcocoder/universos/ids"
)

// Warning is one anomaly or ledger violation surfaced by an audit pass.
type Warning struct {
	Kind    string
	Subject ids.UniverseID
	Detail  string
}

func (w Warning) String() string {
	if w.Subject != 0 {
		return fmt.Sprintf("%s[universe=%s]: %s", w.Kind, w.Subject, w.Detail)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
}

// UniverseSnapshot is the minimal per-universe view the auditor needs;
// the kernel fills this in from its live universe map each audit pass.
type UniverseSnapshot struct {
	ID        ids.UniverseID
	Energy    float64
	Entropy   float64
	Stability float64
}

// Auditor tracks entropy history across passes to catch monotonicity
// violations that a single snapshot can't reveal.
type Auditor struct {
	epsilon     float64
	lastEntropy map[ids.UniverseID]float64
}

// New returns an Auditor that flags global ledger drift above epsilon
// (use config.Parameters.AuditEpsilon).
func New(epsilon float64) *Auditor {
	return &Auditor{epsilon: epsilon, lastEntropy: make(map[ids.UniverseID]float64)}
}

// Audit runs one pass: an anomaly scan over universes (entropy
// regression, stability above 1.0, negative energy) plus a global ledger
// check comparing currentTotal (sum of universe energy + free pool +
// in-transit + radiated - materialized) against initialTotal.
func (a *Auditor) Audit(universes []UniverseSnapshot, initialTotal, currentTotal float64) []Warning {
	var warnings []Warning

	for _, u := range universes {
		if prev, ok := a.lastEntropy[u.ID]; ok && u.Entropy < prev {
			warnings = append(warnings, Warning{
				Kind: "entropy-regression", Subject: u.ID,
				Detail: fmt.Sprintf("entropy fell from %.6f to %.6f", prev, u.Entropy),
			})
		}
		a.lastEntropy[u.ID] = u.Entropy

		if u.Stability > 1.0 {
			warnings = append(warnings, Warning{
				Kind: "stability-injection", Subject: u.ID,
				Detail: fmt.Sprintf("stability %.4f exceeds 1.0", u.Stability),
			})
		}
		if u.Energy < 0 {
			warnings = append(warnings, Warning{
				Kind: "negative-energy", Subject: u.ID,
				Detail: fmt.Sprintf("energy %.6f", u.Energy),
			})
		}
	}

	drift := currentTotal - initialTotal
	if drift < 0 {
		drift = -drift
	}
	if drift > a.epsilon {
		warnings = append(warnings, Warning{
			Kind:   "conservation-drift",
			Detail: fmt.Sprintf("|%.6f - %.6f| = %.6f exceeds audit epsilon %.6f", currentTotal, initialTotal, drift, a.epsilon),
		})
	}

	return warnings
}

// Forget removes a universe's tracked entropy history, called by the
// kernel after a universe collapses so a later ID reuse doesn't
// falsely trigger entropy-regression.
func (a *Auditor) Forget(id ids.UniverseID) {
	delete(a.lastEntropy, id)
}
