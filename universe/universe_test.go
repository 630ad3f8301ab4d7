// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package universe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcocoder/universos/ids"
)

func TestNewInitialState(t *testing.T) {
	require := require.New(t)
	u := New(1, 100, 0)
	require.Equal(0.0, u.Entropy)
	require.Equal(1.0, u.Stability)
	require.Equal(byte(initialStackPointer), u.Memory[StackPointerAddr])
}

func TestTransferEnergyInsufficient(t *testing.T) {
	require := require.New(t)
	u := New(1, 10, 0)
	require.ErrorIs(u.TransferEnergy(-20), ErrInsufficientEnergy)
	require.Equal(10.0, u.Energy)

	require.NoError(u.TransferEnergy(-5))
	require.Equal(5.0, u.Energy)
}

func TestIncreaseEntropyPanicsOnNegative(t *testing.T) {
	u := New(1, 10, 0)
	require.Panics(t, func() { u.IncreaseEntropy(-1) })
}

func TestAdvanceTimeAddsOneAtAnyDensity(t *testing.T) {
	require := require.New(t)
	u := New(1, 10, 0)
	u.AdvanceTime()
	require.Equal(uint64(1), u.Clock)

	u.AddInteraction(ids.InteractionID(1))
	u.Clock = 0
	u.AdvanceTime()
	require.Equal(uint64(1), u.Clock) // ceil(1/2) == 1

	for i := ids.InteractionID(2); i < 10; i++ {
		u.AddInteraction(i)
	}
	u.Clock = 0
	u.AdvanceTime()
	require.Equal(uint64(1), u.Clock)
}

func TestUpdateStabilityClamped(t *testing.T) {
	require := require.New(t)
	u := New(1, 1000, 0)
	u.Entropy = 0
	u.UpdateStability()
	require.Equal(1.0, u.Stability)

	u.Energy = 0
	u.UpdateStability()
	require.Equal(0.0, u.Stability)
}

func TestBranchSplitsEnergy(t *testing.T) {
	require := require.New(t)
	u := New(1, 50, 0)
	u.Entropy = 2
	child, err := u.Branch(2, 10, 5, 1)
	require.NoError(err)
	// (50 - 5) / 2 == 22.5 each
	require.InDelta(22.5, u.Energy, 1e-9)
	require.InDelta(22.5, child.Energy, 1e-9)
	require.Equal(0.5, child.Stability)
	require.Equal(2.0, child.Entropy)
	require.Equal(3.0, u.Entropy) // parent entropy +1.0
}

func TestBranchInsufficientEnergy(t *testing.T) {
	u := New(1, 10, 0)
	_, err := u.Branch(2, 10, 5, 1)
	require.ErrorIs(t, err, ErrBranchInsufficientEnergy)
}

func TestSnapshotRestorePreservesEntropyMonotonicity(t *testing.T) {
	require := require.New(t)
	u := New(1, 100, 0)
	u.Entropy = 5
	snap := u.Snapshot()

	u.Energy = 40
	u.Entropy = 9
	u.Memory[0] = 0xFF

	u.Restore(snap)
	require.Equal(100.0, u.Energy)
	require.Equal(byte(0), u.Memory[0])
	require.Equal(9.0, u.Entropy) // max(current=9, snapshot=5)
}

func TestCanMergeWith(t *testing.T) {
	require := require.New(t)
	a := New(1, 100, 0)
	a.Stability = 0.9
	a.Entropy = 10
	b := New(2, 90, 0)
	b.Stability = 0.8
	b.Entropy = 11
	require.True(a.CanMergeWith(b))

	b.Stability = 0.5
	require.False(a.CanMergeWith(b))
}

func TestObserveClampsToByteRange(t *testing.T) {
	require := require.New(t)
	u := New(1, 100000, 0)
	require.Equal(byte(255), u.Observe(0))
	u.Energy = 0
	require.Equal(byte(0), u.Observe(0))
}
