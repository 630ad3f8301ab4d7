// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ArchiveRecord is one tick's persisted snapshot, keyed by tick.
type ArchiveRecord struct {
	Tick      uint64         `json:"tick"`
	Universes []UniverseView `json:"universes"`
}

// Archive is the cold-storage driver: on every Sync it serializes the
// universe set to JSON, optionally zstd-compressed, and appends it to
// an in-memory log the kernel (or a test) can later read via Records.
// Per spec's open question on archive serialization, the default is
// uncompressed JSON; compression is opt-in via NewArchive(true).
type Archive struct {
	mu          sync.Mutex
	records     [][]byte
	compressed  bool
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	pending     float64
}

// NewArchive returns an Archive driver. If compress is true, records
// are zstd-compressed before being stored.
func NewArchive(compress bool) (*Archive, error) {
	a := &Archive{compressed: compress}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("archive: init zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("archive: init zstd decoder: %w", err)
		}
		a.encoder = enc
		a.decoder = dec
	}
	return a, nil
}

func (a *Archive) Name() string { return "archive" }

// Sync serializes the current universe set and appends it to the log.
// It never emits events or requests a pulse.
func (a *Archive) Sync(tick uint64, universes []UniverseView) (emit []Event, pulse Pulse) {
	rec := ArchiveRecord{Tick: tick, Universes: universes}
	raw, err := json.Marshal(rec)
	if err != nil {
		// Archiving failures are not kernel faults; record nothing this
		// tick and keep running.
		return nil, Pulse{}
	}
	if a.compressed {
		raw = a.encoder.EncodeAll(raw, nil)
	}
	a.mu.Lock()
	a.records = append(a.records, raw)
	a.mu.Unlock()
	return nil, Pulse{}
}

func (a *Archive) HandleEvent(Event) {}

func (a *Archive) PendingEnergy() float64 { return a.pending }

// Records returns the raw (possibly compressed) archive log.
func (a *Archive) Records() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]byte, len(a.records))
	copy(out, a.records)
	return out
}

// Decode reverses Sync's serialization for a single record, used by
// tests and by a future replay tool.
func (a *Archive) Decode(raw []byte) (ArchiveRecord, error) {
	var rec ArchiveRecord
	if a.compressed {
		plain, err := a.decoder.DecodeAll(raw, nil)
		if err != nil {
			return rec, fmt.Errorf("archive: zstd decode: %w", err)
		}
		raw = plain
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rec); err != nil {
		return rec, fmt.Errorf("archive: json decode: %w", err)
	}
	return rec, nil
}
