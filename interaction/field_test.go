// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package interaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcocoder/universos/ids"
)

func TestFieldRegisterAndDensity(t *testing.T) {
	require := require.New(t)
	f := NewField()
	it1, _ := New(1, 10, 20, 0.5, 0.1)
	it2, _ := New(2, 10, 30, 0.5, 0.1)
	f.Register(it1)
	f.Register(it2)

	require.Equal(2, f.Density(10))
	require.Equal(1, f.Density(20))
	require.ElementsMatch([]ids.UniverseID{20, 30}, f.Neighbors(10))
}

func TestFieldRemove(t *testing.T) {
	require := require.New(t)
	f := NewField()
	it1, _ := New(1, 10, 20, 0.5, 0.1)
	f.Register(it1)
	f.Remove(1, 10, 20)
	require.Equal(0, f.Density(10))
	require.Equal(0, f.Density(20))
}

func TestFieldFindPathDirect(t *testing.T) {
	require := require.New(t)
	f := NewField()
	it1, _ := New(1, 10, 20, 0.5, 0.1)
	f.Register(it1)

	path, ok := f.FindPath(10, 20)
	require.True(ok)
	require.Equal([]ids.InteractionID{1}, path)
}

func TestFieldFindPathMultiHop(t *testing.T) {
	require := require.New(t)
	f := NewField()
	it1, _ := New(1, 10, 20, 0.5, 0.1)
	it2, _ := New(2, 20, 30, 0.5, 0.1)
	f.Register(it1)
	f.Register(it2)

	path, ok := f.FindPath(10, 30)
	require.True(ok)
	require.Equal([]ids.InteractionID{1, 2}, path)
}

func TestFieldFindPathSameNode(t *testing.T) {
	f := NewField()
	path, ok := f.FindPath(5, 5)
	require.True(t, ok)
	require.Empty(t, path)
}

func TestFieldFindPathUnreachable(t *testing.T) {
	f := NewField()
	it1, _ := New(1, 10, 20, 0.5, 0.1)
	f.Register(it1)
	_, ok := f.FindPath(10, 999)
	require.False(t, ok)
}
