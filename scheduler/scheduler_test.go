// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcocoder/universos/ids"
)

func TestScheduleOrdersByPriority(t *testing.T) {
	require := require.New(t)
	candidates := []Candidate{
		{UniverseID: 1, Stability: 0.9, Entropy: 1, Resistance: 1, Pressure: 1},
		{UniverseID: 2, Stability: 0.2, Entropy: 5, Resistance: 1, Pressure: 1},
		{UniverseID: 3, Stability: 1.0, Entropy: 0, Resistance: 0.5, Pressure: 2},
	}
	ordered, dropped := Schedule(candidates, 1e-4)
	require.Equal(0, dropped)
	require.Equal(ids.UniverseID(3), ordered[0])
	require.Len(ordered, 3)
}

func TestScheduleDropsBelowCutoff(t *testing.T) {
	require := require.New(t)
	candidates := []Candidate{
		{UniverseID: 1, Stability: 0.0001, Entropy: 100, Resistance: 1000, Pressure: 0.001},
		{UniverseID: 2, Stability: 1.0, Entropy: 0, Resistance: 1, Pressure: 1},
	}
	ordered, dropped := Schedule(candidates, 1e-4)
	require.Equal(1, dropped)
	require.Equal([]ids.UniverseID{2}, ordered)
}

func TestScheduleTieBreaksByInsertionOrder(t *testing.T) {
	require := require.New(t)
	candidates := []Candidate{
		{UniverseID: 1, Stability: 0.5, Entropy: 0, Resistance: 1, Pressure: 1},
		{UniverseID: 2, Stability: 0.5, Entropy: 0, Resistance: 1, Pressure: 1},
	}
	ordered, _ := Schedule(candidates, 1e-4)
	require.Equal([]ids.UniverseID{1, 2}, ordered)
}

func TestScheduleResistanceFloored(t *testing.T) {
	require := require.New(t)
	candidates := []Candidate{
		{UniverseID: 1, Stability: 1, Entropy: 0, Resistance: 0, Pressure: 1},
	}
	ordered, dropped := Schedule(candidates, 1e-4)
	require.Equal(0, dropped)
	require.Len(ordered, 1)
}
