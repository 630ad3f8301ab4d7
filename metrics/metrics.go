// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the kernel's Prometheus instrumentation,
// following the consensus runtime's thin metrics.Metrics wrapper
// (metrics/metrics.go in the reference pack).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Kernel holds every metric the evolution pipeline updates.
type Kernel struct {
	Registry prometheus.Registerer

	TickDuration       prometheus.Histogram
	UniverseCount      prometheus.Gauge
	InteractionCount   prometheus.Gauge
	ScheduledPerTick   prometheus.Gauge
	CollapsedTotal     prometheus.Counter
	ConservationDrift  prometheus.Gauge
	GlobalEntropy      prometheus.Gauge
	GlobalFreeEnergy   prometheus.Gauge
	EnergyRadiated     prometheus.Counter
	EnergyMaterialized prometheus.Counter
	AuditWarnings      prometheus.Counter
}

// New registers and returns the kernel's metric set against reg. reg
// may be a prometheus.NewRegistry() in tests or the default registry
// in production.
func New(reg prometheus.Registerer) *Kernel {
	m := &Kernel{
		Registry: reg,
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "universos_tick_duration_seconds",
			Help:    "Wall-clock duration of one evolution tick.",
			Buckets: prometheus.DefBuckets,
		}),
		UniverseCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_universes",
			Help: "Number of live universes.",
		}),
		InteractionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_interactions",
			Help: "Number of live interactions.",
		}),
		ScheduledPerTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_scheduled_per_tick",
			Help: "Number of universes the scheduler ranked above the priority cutoff on the last tick.",
		}),
		CollapsedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "universos_collapsed_total",
			Help: "Total universes collapsed by the kernel or the auditor.",
		}),
		ConservationDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_conservation_drift",
			Help: "Absolute drift of the last energy ledger check (I1).",
		}),
		GlobalEntropy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_global_entropy",
			Help: "Current global entropy.",
		}),
		GlobalFreeEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universos_global_free_energy",
			Help: "Current free energy in the global pool.",
		}),
		EnergyRadiated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "universos_energy_radiated_total",
			Help: "Cumulative energy that left the node boundary.",
		}),
		EnergyMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "universos_energy_materialized_total",
			Help: "Cumulative energy that entered across the node boundary.",
		}),
		AuditWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "universos_audit_warnings_total",
			Help: "Total non-fatal warnings raised by the security auditor.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.TickDuration, m.UniverseCount, m.InteractionCount, m.ScheduledPerTick,
		m.CollapsedTotal, m.ConservationDrift, m.GlobalEntropy, m.GlobalFreeEnergy,
		m.EnergyRadiated, m.EnergyMaterialized, m.AuditWarnings,
	} {
		_ = reg.Register(c)
	}
	return m
}
