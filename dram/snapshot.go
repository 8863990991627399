package dram

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the serialized form of one Module's storage, used by the
// core-dump path (spec.md §6 "snapshot on fatal fault") and by
// PRELOAD_DATA's inverse, a save/restore round trip for tests.
type Snapshot struct {
	Banks    [][]byte
	Checksum uint64
}

// Save captures every bank's raw words and a checksum over them, so a
// later Restore (or an external diff tool) can detect silent corruption
// (SPEC_FULL.md §9.3 "snapshot integrity").
func (m *Module) Save() Snapshot {
	banks := make([][]byte, len(m.banks))
	h := xxhash.New()
	for i, b := range m.banks {
		raw := b.RawBytes()
		banks[i] = raw
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))
		h.Write(idx[:])
		h.Write(raw)
	}
	return Snapshot{Banks: banks, Checksum: h.Sum64()}
}

// Restore loads a Snapshot back into the module's banks, verifying its
// checksum first.
func (m *Module) Restore(s Snapshot) error {
	if len(s.Banks) != len(m.banks) {
		return fmt.Errorf("snapshot has %d banks, module has %d", len(s.Banks), len(m.banks))
	}
	h := xxhash.New()
	for i, raw := range s.Banks {
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))
		h.Write(idx[:])
		h.Write(raw)
	}
	if h.Sum64() != s.Checksum {
		return fmt.Errorf("snapshot checksum mismatch: got %x, want %x", h.Sum64(), s.Checksum)
	}
	for i, raw := range s.Banks {
		if err := m.banks[i].LoadRawBytes(raw); err != nil {
			return fmt.Errorf("bank %d: %w", i, err)
		}
	}
	return nil
}

// Preload writes words directly into bank/row/col with no timing effect,
// the module-level half of the PRELOAD_DATA client command (spec.md §6).
func (m *Module) Preload(bank, row, col uint32, words []uint32) error {
	return m.banks[bank].Preload(row, col, words)
}
