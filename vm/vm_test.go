// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcocoder/universos/event"
)

func TestStepNOPAdvancesOne(t *testing.T) {
	var mem [256]byte
	mem[0] = OpNOP
	r := Step(&mem, 0, 1, 0)
	require.Equal(t, byte(1), r.NextIP)
	require.Nil(t, r.Event)
}

func TestStepSETWritesAndCosts(t *testing.T) {
	require := require.New(t)
	var mem [256]byte
	mem[0], mem[1], mem[2] = OpSET, 10, 42
	r := Step(&mem, 0, 1, 0)
	require.Equal(byte(3), r.NextIP)
	require.Equal(byte(42), mem[10])
	require.InDelta(0.0101, r.Cost, 1e-9)

	// Writing the same value again costs less (no bit change).
	mem[0] = OpSET
	r2 := Step(&mem, 0, 1, 0)
	require.InDelta(0.0001, r2.Cost, 1e-9)
}

func TestStepADDWraps(t *testing.T) {
	var mem [256]byte
	mem[10], mem[11] = 250, 10
	mem[0], mem[1], mem[2] = OpADD, 10, 11
	r := Step(&mem, 0, 1, 0)
	require.Equal(t, byte(4), mem[10]) // 250+10 == 260 mod 256 == 4
	require.Equal(t, byte(3), r.NextIP)
}

func TestStepOutOfRangeOperandsDecayToNOP(t *testing.T) {
	var mem [256]byte
	mem[254] = OpCOPY // needs 3 operand bytes but only 1 byte remains
	r := Step(&mem, 254, 1, 0)
	require.Equal(t, byte(255), r.NextIP)
	require.InDelta(t, costNOP, r.Cost, 1e-9)
}

func TestStepHALTSpins(t *testing.T) {
	var mem [256]byte
	mem[5] = OpHALT
	r := Step(&mem, 5, 1, 0)
	require.Equal(t, byte(5), r.NextIP)
	require.Equal(t, 0.0, r.Cost)
}

func TestStepCALLandRET(t *testing.T) {
	require := require.New(t)
	var mem [256]byte
	mem[StackPointerAddrForTest] = 254 // empty stack, as a fresh universe starts
	mem[0], mem[1] = OpCALL, 50
	r := Step(&mem, 0, 1, 0)
	require.Equal(byte(50), r.NextIP)
	require.Equal(byte(253), mem[StackPointerAddrForTest])
	require.Equal(byte(2), mem[253]) // pushed return address ip+2

	mem[50] = OpRET
	r2 := Step(&mem, 50, 1, 0)
	require.Equal(byte(2), r2.NextIP)
	require.Equal(byte(254), mem[StackPointerAddrForTest])
}

func TestStepStackUnderflowDecaysToNOP(t *testing.T) {
	var mem [256]byte
	mem[255] = 254 // stack empty
	mem[0] = OpRET
	r := Step(&mem, 0, 1, 0)
	require.Equal(t, byte(1), r.NextIP)
	require.InDelta(t, costNOP, r.Cost, 1e-9)
}

func TestStepSIGNALEmitsEventWithPayload(t *testing.T) {
	require := require.New(t)
	var mem [256]byte
	mem[0], mem[1], mem[2] = OpSIGNAL, 3, 2
	mem[3], mem[4] = 'h', 'i'
	r := Step(&mem, 0, 7, 42)
	require.NotNil(r.Event)
	require.Equal(event.Signal, r.Event.Tag)
	require.Equal(byte(5), r.NextIP)
	require.Equal(1.0, r.Event.Payload)
	require.Equal([]byte("hi"), r.Event.Data)
	require.Equal(uint64(42), r.Event.Created)
}

func TestStepSIGNALOutOfRangeDataDecaysToNOP(t *testing.T) {
	var mem [256]byte
	mem[250], mem[251], mem[252] = OpSIGNAL, 3, 200 // data would overflow memory
	r := Step(&mem, 250, 1, 0)
	require.Equal(t, byte(251), r.NextIP)
	require.Nil(t, r.Event)
}

func TestStepENTANGLEPayloadScaling(t *testing.T) {
	var mem [256]byte
	mem[0], mem[1], mem[2] = OpENTANGLE, 9, 255
	r := Step(&mem, 0, 1, 0)
	require.InDelta(t, 10.0, r.Event.Payload, 1e-9)
	require.Equal(t, 5.0, r.Cost)
}

func TestStepBRANCHCarriesEnergyOperandAsPayload(t *testing.T) {
	var mem [256]byte
	mem[0], mem[1], mem[2] = OpBRANCH, 30, 0
	r := Step(&mem, 0, 1, 0)
	require.Equal(t, 30.0, r.Event.Payload)
	require.Equal(t, 10.0, r.Cost)
}

// StackPointerAddrForTest exposes the package-private stack pointer
// address to the test file without widening the package's public API.
const StackPointerAddrForTest = stackPointerAddr
