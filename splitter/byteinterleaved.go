package splitter

import (
	"math/bits"

	"gddrmc/types"
)

// ByteInterleaved implements the power-of-two byte-interleaved address
// splitter (spec.md §4.3 "byte-interleaved variant"): channel and bank
// selector bits are swizzled out of the middle of the address at
// configurable granularities, and the remaining bits decompose linearly
// into row and column within the selected bank.
type ByteInterleaved struct {
	cfg types.SplitterConfig

	channelShift uint32
	channelMask  uint64
	channels     uint32

	bankShift uint32
	bankMask  uint64
	banks     uint32

	rowShift uint32
	rowMask  uint64
}

// NewByteInterleaved builds a mapper from an already-validated config
// (types.SplitterConfig.Validate must have been called by the caller).
func NewByteInterleaved(cfg types.SplitterConfig) *ByteInterleaved {
	return &ByteInterleaved{
		cfg:          cfg,
		channelShift: uint32(bits.TrailingZeros32(cfg.ChannelInterleavingBytes)),
		channelMask:  uint64(cfg.Channels - 1),
		channels:     cfg.Channels,
		bankShift:    uint32(bits.TrailingZeros32(cfg.BankInterleavingBytes)),
		bankMask:     uint64(cfg.BanksPerChannel - 1),
		banks:        cfg.BanksPerChannel,
		rowShift:     uint32(bits.TrailingZeros32(cfg.RowSizeBytes)),
		rowMask:      uint64(cfg.RowSizeBytes - 1),
	}
}

func (m *ByteInterleaved) NumChannels() uint32 { return m.cfg.Channels }

// perChannelAddr removes the channel-select bits from addr, linearizing
// the address space each channel sees.
func (m *ByteInterleaved) perChannelAddr(addr uint64) (channel uint32, perChannel uint64) {
	chanChunk := uint64(1) << m.channelShift
	low := addr & (chanChunk - 1)
	rest := addr >> m.channelShift
	channel = uint32(rest & m.channelMask)
	higher := rest >> bits.TrailingZeros32(m.channels)
	perChannel = (higher << m.channelShift) | low
	return
}

// perBankAddr removes the bank-select bits from a per-channel address,
// linearizing the address space each bank sees.
func (m *ByteInterleaved) perBankAddr(addr uint64) (bank uint32, perBank uint64) {
	bankChunk := uint64(1) << m.bankShift
	low := addr & (bankChunk - 1)
	rest := addr >> m.bankShift
	bank = uint32(rest & m.bankMask)
	higher := rest >> bits.TrailingZeros32(m.banks)
	perBank = (higher << m.bankShift) | low
	return
}

func (m *ByteInterleaved) decompose(addr uint64) (channel, bank, row, col uint32) {
	channel, perChannel := m.perChannelAddr(addr)
	bank, perBank := m.perBankAddr(perChannel)
	row = uint32(perBank >> m.rowShift)
	col = uint32(perBank&m.rowMask) / 4
	return
}

func (m *ByteInterleaved) maxFragmentBytes(addr uint64) uint64 {
	chanChunk := uint64(1) << m.channelShift
	remainChannel := chanChunk - (addr & (chanChunk - 1))

	_, perChannel := m.perChannelAddr(addr)
	bankChunk := uint64(1) << m.bankShift
	remainBank := bankChunk - (perChannel & (bankChunk - 1))

	_, perBank := m.perBankAddr(perChannel)
	remainRow := (uint64(1) << m.rowShift) - (perBank & m.rowMask)

	frag := remainChannel
	if remainBank < frag {
		frag = remainBank
	}
	if remainRow < frag {
		frag = remainRow
	}
	return frag
}

func (m *ByteInterleaved) burstWords() uint32 { return m.cfg.BurstWords }

// Split fragments req per the byte-interleaved address mapping.
func (m *ByteInterleaved) Split(req *types.MemoryRequest, parent types.RequestRef) ([]types.ChannelTransaction, error) {
	return split(m, req, parent)
}
