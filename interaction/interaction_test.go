// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package interaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcocoder/universos/event"
)

func TestNewRejectsInvalidCoupling(t *testing.T) {
	_, err := New(1, 1, 2, 1.5, 0.1)
	require.ErrorIs(t, err, ErrInvalidCoupling)
}

func TestPushRoutesByDirection(t *testing.T) {
	require := require.New(t)
	it, err := New(1, 10, 20, 0.5, 0.1)
	require.NoError(err)

	require.NoError(it.Push(event.Event{Source: 10, Target: 20}, 1))
	require.NoError(it.Push(event.Event{Source: 20, Target: 10}, 1))
	require.Equal(1, it.Forward.Len())
	require.Equal(1, it.Backward.Len())

	err = it.Push(event.Event{Source: 99, Target: 10}, 1)
	require.ErrorIs(err, ErrMissingEndpoint)
}

func TestApplyDecayReducesCoupling(t *testing.T) {
	require := require.New(t)
	it, _ := New(1, 1, 2, 0.5, 0.2)
	it.ApplyDecay()
	require.InDelta(0.4, it.Coupling, 1e-9)
	require.Equal(uint64(1), it.Age)
}

func TestCalculateEnergyTransfer(t *testing.T) {
	it, _ := New(1, 1, 2, 0.5, 0.1)
	it.Momentum = 2.0
	require.InDelta(t, 0.5, it.CalculateEnergyTransfer(0.5), 1e-9)
}

func TestSetMomentumFromImbalance(t *testing.T) {
	it, _ := New(1, 1, 2, 0.5, 0.1)
	it.SetMomentum(100, 50)
	require.InDelta(t, 0.25, it.Momentum, 1e-9)
}

func TestIsActiveThreshold(t *testing.T) {
	it, _ := New(1, 1, 2, 0.0005, 0)
	require.False(t, it.IsActive())
	it.Coupling = 0.5
	require.True(t, it.IsActive())
}

func TestProcessEventsDrainsBothDirections(t *testing.T) {
	require := require.New(t)
	it, _ := New(1, 10, 20, 0.5, 0.1)
	require.NoError(it.Push(event.Event{Source: 10, Target: 20, Payload: 1}, 1))
	require.NoError(it.Push(event.Event{Source: 20, Target: 10, Payload: 2}, 1))
	arrived := it.ProcessEvents(2)
	require.Len(arrived, 2)
}
