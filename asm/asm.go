// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package asm implements the two-pass line-oriented assembler for the
// Universal ISA, per spec §6. Grounded on
// original_source/kernel/src/compiler/assembler.rs's pass structure:
// pass one collects `.def` bindings and label offsets, pass two emits
// bytes resolving every symbolic operand.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethcocoder/universos/vm"
)

// mnemonics maps a case-insensitive instruction name to its opcode and
// fixed operand count (SIGNAL is handled specially: its source form is
// a target followed by raw data bytes or one string literal, and the
// assembler inserts the length byte itself).
var mnemonics = map[string]struct {
	op    byte
	arity int
}{
	"NOP":      {vm.OpNOP, 0},
	"SET":      {vm.OpSET, 2},
	"XOR":      {vm.OpXOR, 2},
	"COPY":     {vm.OpCOPY, 3},
	"ADD":      {vm.OpADD, 2},
	"SUB":      {vm.OpSUB, 2},
	"CMP":      {vm.OpCMP, 3},
	"JUMP":     {vm.OpJUMP, 1},
	"JUMPIF":   {vm.OpJUMPIF, 2},
	"CALL":     {vm.OpCALL, 1},
	"RET":      {vm.OpRET, 0},
	"PUSH":     {vm.OpPUSH, 1},
	"POP":      {vm.OpPOP, 1},
	"SIGNAL":   {vm.OpSIGNAL, -1}, // variable
	"ENTANGLE": {vm.OpENTANGLE, 2},
	"OBSERVE":  {vm.OpOBSERVE, 3},
	"REVERT":   {vm.OpREVERT, 1},
	"BRANCH":   {vm.OpBRANCH, 2},
	"HALT":     {vm.OpHALT, 0},
}

// token is one whitespace-separated piece of a line, preserving a
// quoted string literal as a single token with quotes stripped.
type token struct {
	text   string
	quoted bool
}

type line struct {
	mnemonic string
	args     []token
	label    string // non-empty if this line is (or starts with) a label
	isDef    bool
	defName  string
	defValue string
}

// Assemble compiles src into a flat byte program. It returns an error
// naming the offending line on any unresolved symbol, unknown
// mnemonic, or malformed directive; the assembler itself never
// produces partial output on error.
func Assemble(src string) ([]byte, error) {
	lines, err := splitLines(src)
	if err != nil {
		return nil, err
	}

	defs := map[string]byte{}
	labels := map[string]byte{}

	// Pass 1: collect .def bindings and label offsets by walking the
	// program the same way pass 2 will, so label offsets account for
	// every preceding instruction's true encoded length.
	offset := 0
	for i, ln := range lines {
		if ln.isDef {
			v, err := resolveImmediate(ln.defValue, defs, labels)
			if err != nil {
				return nil, fmt.Errorf("line %d: .def %s: %w", i+1, ln.defName, err)
			}
			defs[ln.defName] = v
			continue
		}
		if ln.label != "" {
			labels[ln.label] = byte(offset)
		}
		if ln.mnemonic == "" {
			continue
		}
		n, err := encodedLength(ln)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		offset += n
	}

	// Pass 2: emit.
	var out []byte
	for i, ln := range lines {
		if ln.isDef || ln.mnemonic == "" {
			continue
		}
		encoded, err := encode(ln, defs, labels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, encoded...)
	}
	return out, nil
}

func encodedLength(ln line) (int, error) {
	m, ok := mnemonics[strings.ToUpper(ln.mnemonic)]
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", ln.mnemonic)
	}
	if m.op != vm.OpSIGNAL {
		return 1 + m.arity, nil
	}
	// SIGNAL target [data...|"string"] encodes as F0 target len data...:
	// opcode + target + an explicit length byte + the data itself.
	if len(ln.args) < 2 {
		return 0, fmt.Errorf("SIGNAL requires target and payload")
	}
	if len(ln.args) == 2 && ln.args[1].quoted {
		return 3 + len(ln.args[1].text), nil
	}
	return 2 + len(ln.args), nil
}

func encode(ln line, defs, labels map[string]byte) ([]byte, error) {
	m, ok := mnemonics[strings.ToUpper(ln.mnemonic)]
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", ln.mnemonic)
	}
	if m.op == vm.OpSIGNAL {
		return encodeSignal(ln, defs, labels)
	}
	if len(ln.args) != m.arity {
		return nil, fmt.Errorf("%s expects %d operands, got %d", ln.mnemonic, m.arity, len(ln.args))
	}
	out := []byte{m.op}
	for _, a := range ln.args {
		v, err := resolveImmediate(a.text, defs, labels)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeSignal(ln line, defs, labels map[string]byte) ([]byte, error) {
	if len(ln.args) < 2 {
		return nil, fmt.Errorf("SIGNAL requires target and payload")
	}
	target, err := resolveImmediate(ln.args[0].text, defs, labels)
	if err != nil {
		return nil, err
	}
	if len(ln.args) == 2 && ln.args[1].quoted {
		data := []byte(ln.args[1].text)
		out := append([]byte{vm.OpSIGNAL, target, byte(len(data))}, data...)
		return out, nil
	}
	data := make([]byte, 0, len(ln.args)-1)
	for _, a := range ln.args[1:] {
		v, err := resolveImmediate(a.text, defs, labels)
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}
	out := append([]byte{vm.OpSIGNAL, target, byte(len(data))}, data...)
	return out, nil
}

// resolveImmediate interprets text as a decimal literal, a .def name,
// or a label, in that order.
func resolveImmediate(text string, defs, labels map[string]byte) (byte, error) {
	if v, err := strconv.ParseUint(text, 10, 8); err == nil {
		return byte(v), nil
	}
	if v, ok := defs[text]; ok {
		return v, nil
	}
	if v, ok := labels[text]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unresolved symbol %q", text)
}

// splitLines parses src into a sequence of logical lines, stripping
// comments and blank lines, splitting on `/` as a statement separator
// (per the spec's single-line example form) in addition to newlines.
func splitLines(src string) ([]line, error) {
	var lines []line
	for _, raw := range strings.Split(src, "\n") {
		raw = stripComment(raw)
		for _, stmt := range splitStatements(raw) {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			ln, err := parseStatement(stmt)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ln)
		}
	}
	return lines, nil
}

// splitStatements splits a comment-free raw source line on unquoted
// single `/` separators, so `SET 100 42 / SIGNAL 3 "hi" / HALT` parses
// as three statements. Comments must already be stripped: this treats
// every unquoted `/` as a separator, including ones that were part of
// a `//` comment marker.
func splitStatements(raw string) []string {
	var stmts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '/' && !inQuote:
			stmts = append(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	stmts = append(stmts, cur.String())
	return stmts
}

// stripComment removes a trailing `#` or `//` comment, ignoring
// either marker if it appears inside a quoted string literal.
func stripComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case inQuote:
			continue
		case s[i] == '#':
			return s[:i]
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '/':
			return s[:i]
		}
	}
	return s
}

func parseStatement(stmt string) (line, error) {
	if strings.HasPrefix(stmt, ".def ") {
		fields := strings.Fields(strings.TrimPrefix(stmt, ".def "))
		if len(fields) != 2 {
			return line{}, fmt.Errorf(".def requires a name and a value: %q", stmt)
		}
		return line{isDef: true, defName: fields[0], defValue: fields[1]}, nil
	}
	if strings.HasSuffix(stmt, ":") && !strings.Contains(stmt, " ") {
		return line{label: strings.TrimSuffix(stmt, ":")}, nil
	}

	toks := tokenize(stmt)
	if len(toks) == 0 {
		return line{}, nil
	}
	return line{mnemonic: toks[0].text, args: toks[1:]}, nil
}

func tokenize(stmt string) []token {
	var toks []token
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, token{text: cur.String()})
			cur.Reset()
		}
	}
	for _, r := range stmt {
		switch {
		case r == '"':
			if inQuote {
				toks = append(toks, token{text: cur.String(), quoted: true})
				cur.Reset()
			}
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
