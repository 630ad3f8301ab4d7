// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package asm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleFidelityS5(t *testing.T) {
	out, err := Assemble(`SET 100 42 / SIGNAL 3 "hi" / HALT`)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x64, 0x2A, 0xF0, 0x03, 0x02, 0x68, 0x69, 0xFF}, out)
}

func TestAssembleSignalWithExplicitDataBytes(t *testing.T) {
	out, err := Assemble("SIGNAL 2 1 2 3")
	require.NoError(t, err)
	require.Equal(t, []byte{0xF0, 0x02, 0x03, 0x01, 0x02, 0x03}, out)
}

func TestAssembleDefAndLabel(t *testing.T) {
	require := require.New(t)
	out, err := Assemble(`
.def target 5
start:
SET 10 1
JUMP start
`)
	require.NoError(err)
	// SET 10 1 -> 01 0A 01 (3 bytes, offset 0); JUMP start -> 10 00 (label start==0)
	require.Equal([]byte{0x01, 0x0A, 0x01, 0x10, 0x00}, out)
}

func TestAssembleUnresolvedSymbolFails(t *testing.T) {
	_, err := Assemble("JUMP nowhere")
	require.Error(t, err)
}

func TestAssembleUnknownMnemonicFails(t *testing.T) {
	_, err := Assemble("FROB 1 2")
	require.Error(t, err)
}

func TestAssembleCommentsAndBlankLinesIgnored(t *testing.T) {
	out, err := Assemble("# a comment\nHALT // trailing\n\n")
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, out)
}
