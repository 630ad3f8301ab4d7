// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm implements the Universal ISA: a byte-addressable,
// single-instruction-per-step bytecode machine, per spec §4.2. The
// dispatch table mirrors the jump-table-of-execution-functions idiom
// used by go-ethereum/go-core's EVM interpreters (core/vm/interpreter.go
// in the reference pack) rather than a bare switch, scaled down to the
// Universal ISA's flat 256-entry opcode space.
package vm

import (
	"github.com/ethcocoder/universos/event"
	"github.com/ethcocoder/universos/ids"
)

// Opcodes, per §4.2.
const (
	OpNOP      byte = 0x00
	OpSET      byte = 0x01
	OpXOR      byte = 0x02
	OpCOPY     byte = 0x03
	OpADD      byte = 0x04
	OpSUB      byte = 0x05
	OpCMP      byte = 0x06
	OpJUMP     byte = 0x10
	OpJUMPIF   byte = 0x11
	OpCALL     byte = 0x20
	OpRET      byte = 0x21
	OpPUSH     byte = 0x22
	OpPOP      byte = 0x23
	OpSIGNAL   byte = 0xF0
	OpENTANGLE byte = 0xF1
	OpOBSERVE  byte = 0xF2
	OpREVERT   byte = 0xF3
	OpBRANCH   byte = 0xF4
	OpHALT     byte = 0xFF
)

const memSize = 256
const stackPointerAddr = 255

// Result is what one Step produces: the next instruction pointer, the
// energy cost of the step, and at most one emitted event. The emitted
// event's Source and ID are placeholders the kernel fills in before
// routing, per §4.2.
type Result struct {
	NextIP byte
	Cost   float64
	Event  *event.Event
}

// Step executes exactly one instruction against mem, starting at ip,
// on behalf of universe src. It never returns an error: out-of-range
// operand reads decay to a NOP for that step (the instruction pointer
// still advances past the opcode byte alone), and HALT spins in place.
// This matches the VM's documented failure handling — state errors are
// silently absorbed, never propagated.
func Step(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	op := mem[ip]
	arity, ok := fixedArity[op]
	if op == OpSIGNAL {
		return stepSignal(mem, ip, src, tick)
	}
	if !ok {
		// Unknown opcode: treat exactly like an out-of-range NOP.
		return Result{NextIP: ip + 1, Cost: costNOP}
	}
	if !operandsInRange(ip, arity) {
		return Result{NextIP: ip + 1, Cost: costNOP}
	}
	fn, ok := dispatch[op]
	if !ok {
		return Result{NextIP: ip + 1, Cost: costNOP}
	}
	return fn(mem, ip, src, tick)
}

// operandsInRange reports whether arity operand bytes starting right
// after the opcode byte all fit inside the 256-byte address window.
func operandsInRange(ip byte, arity int) bool {
	return int(ip)+1+arity <= memSize
}

const costNOP = 0.0001

type executionFunc func(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result

// fixedArity is the number of fixed-size operand bytes following the
// opcode byte (excluding SIGNAL's variable-length payload).
var fixedArity = map[byte]int{
	OpNOP:      0,
	OpSET:      2,
	OpXOR:      2,
	OpCOPY:     3,
	OpADD:      2,
	OpSUB:      2,
	OpCMP:      3,
	OpJUMP:     1,
	OpJUMPIF:   2,
	OpCALL:     1,
	OpRET:      0,
	OpPUSH:     1,
	OpPOP:      1,
	OpENTANGLE: 2,
	OpOBSERVE:  3,
	OpREVERT:   1,
	OpBRANCH:   2,
	OpHALT:     0,
}

var dispatch = map[byte]executionFunc{
	OpNOP:      stepNOP,
	OpSET:      stepSET,
	OpXOR:      stepXOR,
	OpCOPY:     stepCOPY,
	OpADD:      stepADD,
	OpSUB:      stepSUB,
	OpCMP:      stepCMP,
	OpJUMP:     stepJUMP,
	OpJUMPIF:   stepJUMPIF,
	OpCALL:     stepCALL,
	OpRET:      stepRET,
	OpPUSH:     stepPUSH,
	OpPOP:      stepPOP,
	OpENTANGLE: stepENTANGLE,
	OpOBSERVE:  stepOBSERVE,
	OpREVERT:   stepREVERT,
	OpBRANCH:   stepBRANCH,
	OpHALT:     stepHALT,
}

func stepNOP(_ *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	return Result{NextIP: ip + 1, Cost: costNOP}
}

func stepSET(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	addr, val := mem[ip+1], mem[ip+2]
	cost := 0.0001
	if mem[addr] != val {
		cost += 0.01
	}
	mem[addr] = val
	return Result{NextIP: ip + 3, Cost: cost}
}

func stepXOR(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	addr, val := mem[ip+1], mem[ip+2]
	mem[addr] ^= val
	return Result{NextIP: ip + 3, Cost: 0.005}
}

func stepCOPY(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	src, dst, length := int(mem[ip+1]), int(mem[ip+2]), int(mem[ip+3])
	cost := 0.001 * float64(length)
	if src+length > memSize || dst+length > memSize {
		return Result{NextIP: ip + 4, Cost: cost}
	}
	copy(mem[dst:dst+length], mem[src:src+length])
	return Result{NextIP: ip + 4, Cost: cost}
}

func stepADD(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	dst, src := mem[ip+1], mem[ip+2]
	mem[dst] = mem[dst] + mem[src]
	return Result{NextIP: ip + 3, Cost: 0.002}
}

func stepSUB(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	dst, src := mem[ip+1], mem[ip+2]
	mem[dst] = mem[dst] - mem[src]
	return Result{NextIP: ip + 3, Cost: 0.002}
}

func stepCMP(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	a, b, r := mem[ip+1], mem[ip+2], mem[ip+3]
	switch {
	case mem[a] > mem[b]:
		mem[r] = 1
	case mem[a] == mem[b]:
		mem[r] = 0
	default:
		mem[r] = 255
	}
	return Result{NextIP: ip + 4, Cost: 0.001}
}

func stepJUMP(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	return Result{NextIP: mem[ip+1], Cost: 0.0005}
}

func stepJUMPIF(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	cond, addr := mem[ip+1], mem[ip+2]
	next := ip + 3
	if mem[cond] != 0 {
		next = addr
	}
	return Result{NextIP: next, Cost: 0.001}
}

func stepCALL(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	addr := mem[ip+1]
	sp := mem[stackPointerAddr]
	if sp == 0 {
		return Result{NextIP: ip + 2, Cost: costNOP} // stack full, degrade to NOP
	}
	sp--
	mem[sp] = ip + 2
	mem[stackPointerAddr] = sp
	return Result{NextIP: addr, Cost: 0.003}
}

func stepRET(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	sp := mem[stackPointerAddr]
	if sp >= stackPointerAddr-1 {
		return Result{NextIP: ip + 1, Cost: costNOP} // stack empty, degrade to NOP
	}
	ret := mem[sp]
	mem[stackPointerAddr] = sp + 1
	return Result{NextIP: ret, Cost: 0.002}
}

func stepPUSH(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	addr := mem[ip+1]
	sp := mem[stackPointerAddr]
	if sp == 0 {
		return Result{NextIP: ip + 2, Cost: costNOP}
	}
	sp--
	mem[sp] = mem[addr]
	mem[stackPointerAddr] = sp
	return Result{NextIP: ip + 2, Cost: 0.002}
}

func stepPOP(mem *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	addr := mem[ip+1]
	sp := mem[stackPointerAddr]
	if sp >= stackPointerAddr-1 {
		return Result{NextIP: ip + 2, Cost: costNOP}
	}
	mem[addr] = mem[sp]
	mem[stackPointerAddr] = sp + 1
	return Result{NextIP: ip + 2, Cost: 0.002}
}

func stepSignal(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	// SIGNAL target len data...: target and len must be readable; data
	// must fit in full, otherwise this decays to a NOP (the opcode
	// alone is consumed).
	if int(ip)+3 > memSize {
		return Result{NextIP: ip + 1, Cost: costNOP}
	}
	target, length := mem[ip+1], mem[ip+2]
	dataStart := int(ip) + 3
	if dataStart+int(length) > memSize {
		return Result{NextIP: ip + 1, Cost: costNOP}
	}
	data := append([]byte(nil), mem[dataStart:dataStart+int(length)]...)
	nextIP := byte(dataStart + int(length))
	ev := &event.Event{
		Tag:     event.Signal,
		Source:  src,
		Target:  ids.UniverseID(target),
		Payload: 1.0,
		Data:    data,
		Created: tick,
	}
	return Result{NextIP: nextIP, Cost: 0.001 + 0.0001*float64(length), Event: ev}
}

func stepENTANGLE(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	target, strength8 := mem[ip+1], mem[ip+2]
	ev := &event.Event{
		Tag:     event.Entangle,
		Source:  src,
		Target:  ids.UniverseID(target),
		Payload: float64(strength8) / 255 * 10,
		Data:    []byte{strength8},
		Created: tick,
	}
	return Result{NextIP: ip + 3, Cost: 5.0, Event: ev}
}

func stepOBSERVE(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	target, kind, dst := mem[ip+1], mem[ip+2], mem[ip+3]
	ev := &event.Event{
		Tag:     event.Observation,
		Source:  src,
		Target:  ids.UniverseID(target),
		Payload: 0,
		Data:    []byte{kind, dst},
		Created: tick,
	}
	return Result{NextIP: ip + 4, Cost: 0.5, Event: ev}
}

func stepREVERT(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	steps := mem[ip+1]
	ev := &event.Event{
		Tag:     event.Reversion,
		Source:  src,
		Payload: 0,
		Data:    []byte{steps},
		Created: tick,
	}
	return Result{NextIP: ip + 2, Cost: 2.0, Event: ev}
}

func stepBRANCH(mem *[memSize]byte, ip byte, src ids.UniverseID, tick uint64) Result {
	energy, dst := mem[ip+1], mem[ip+2]
	ev := &event.Event{
		Tag:     event.Branch,
		Source:  src,
		Payload: float64(energy),
		Data:    []byte{dst},
		Created: tick,
	}
	return Result{NextIP: ip + 3, Cost: 10.0, Event: ev}
}

func stepHALT(_ *[memSize]byte, ip byte, _ ids.UniverseID, _ uint64) Result {
	return Result{NextIP: ip, Cost: 0}
}
