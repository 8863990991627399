// Package splitter implements the address-splitter component of
// spec.md §4.3: it turns one client-visible byte range into the
// minimal set of channel transactions, each confined to a single
// (channel, bank, row). It is grounded on the teacher's typed,
// validated command-surface style (drivers/ltc4015) generalized from a
// single device's register map to an address-decomposition function.
package splitter

import (
	"gddrmc/errcode"
	"gddrmc/types"
)

// Splitter fragments one memory request's byte range into channel
// transactions (spec.md §4.3).
type Splitter interface {
	// Split decomposes [req.Address, req.Address+req.ByteLen) into
	// transactions, each confined to one (channel, bank, row).
	Split(req *types.MemoryRequest, parent types.RequestRef) ([]types.ChannelTransaction, error)
	// NumChannels reports the channel count this splitter was built for.
	NumChannels() uint32
}

// addressMapper is the per-variant decomposition strategy; Split's
// fragmentation loop is shared across both variants.
type addressMapper interface {
	decompose(addr uint64) (channel, bank, row, col uint32)
	// maxFragmentBytes returns how many contiguous bytes starting at addr
	// stay within the same (channel, bank, row) — i.e. the distance to
	// the nearest channel-, bank-, or row-interleave boundary.
	maxFragmentBytes(addr uint64) uint64
	burstWords() uint32
}

func split(m addressMapper, req *types.MemoryRequest, parent types.RequestRef) ([]types.ChannelTransaction, error) {
	burstBytes := m.burstWords() * 4
	if req.ByteLen == 0 {
		return nil, errcode.New(errcode.InvalidParams, "splitter.Split", "zero-length request")
	}
	if req.Address%uint64(burstBytes) != 0 {
		return nil, errcode.New(errcode.NotBurstAligned, "splitter.Split", "request address is not burst aligned")
	}
	if uint64(req.ByteLen)%uint64(burstBytes) != 0 {
		return nil, errcode.New(errcode.NotBurstAligned, "splitter.Split", "request length is not burst aligned")
	}

	var out []types.ChannelTransaction
	cur := req.Address
	end := req.Address + uint64(req.ByteLen)
	for cur < end {
		channel, bank, row, col := m.decompose(cur)
		fragEnd := cur + m.maxFragmentBytes(cur)
		if fragEnd > end {
			fragEnd = end
		}
		fragLen := uint32(fragEnd - cur)

		kind := types.KindRead
		var data []byte
		var mask []byte
		off := cur - req.Address
		if req.Transaction != types.TxnReadReq {
			kind = types.KindWrite
			if req.WriteMask != nil {
				mask = req.WriteMask[off : off+uint64(fragLen)]
			}
		}
		// Data always aliases the parent request's assembly buffer: for
		// writes the scheduler reads burst words out of it, for reads
		// the controller copies completed burst data straight into it.
		if req.DataBuffer != nil {
			data = req.DataBuffer[off : off+uint64(fragLen)]
		}

		out = append(out, types.ChannelTransaction{
			Kind:      kind,
			Channel:   channel,
			Bank:      bank,
			Row:       row,
			StartCol:  col,
			ByteLen:   fragLen,
			Data:      data,
			ByteMask:  mask,
			Parent:    parent,
			EnqueueAt: req.ArrivalAt,
		})
		cur = fragEnd
	}
	return out, nil
}
