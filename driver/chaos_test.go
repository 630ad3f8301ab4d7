// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChaosSilentBelowCadence(t *testing.T) {
	c := NewChaos(0.9, 1)
	_, pulse := c.Sync(1, []UniverseView{{ID: 1}})
	require.Equal(t, PulseNone, pulse.Kind)
}

func TestChaosSilentBelowIntensity(t *testing.T) {
	c := NewChaos(0.3, 1)
	_, pulse := c.Sync(5, []UniverseView{{ID: 1}})
	require.Equal(t, PulseNone, pulse.Kind)
}

func TestChaosSabotagesOnCadenceAboveIntensity(t *testing.T) {
	require := require.New(t)
	c := NewChaos(0.9, 1)
	_, pulse := c.Sync(5, []UniverseView{{ID: 7}})
	require.Equal(PulseSabotage, pulse.Kind)
	require.Equal(uint64(7), uint64(pulse.UniverseID))
	require.InDelta(22.5, pulse.Amount, 1e-9)
}
