// Package scheduler implements the three channel-scheduler variants of
// spec.md §4.4: plain FIFO, split read/write FIFO with dependency
// tracking, and a per-bank queue with opportunistic precharge/active
// managers. It is grounded on the teacher's register/protocol driver
// style (drivers/ltc4015) for the command-sequencing helper, and on the
// teacher's bus package only incidentally, through the dram.View it
// drives — scheduling decisions themselves never touch the bus.
package scheduler

import (
	"gddrmc/dram"
	"gddrmc/types"
	"gddrmc/x/mathx"
)

// Decision is what a scheduler chose to do this cycle.
type Decision struct {
	Command      types.DRAMCommand
	HasCommand   bool
	Completed    []types.ChannelTransaction // transactions whose last command issued this cycle
}

// Scheduler is one channel's command scheduler (spec.md §4.4).
type Scheduler interface {
	// Enqueue admits txn into the scheduler's internal queue(s), or
	// reports false if it is at capacity (spec.md §7 "queue overflow").
	Enqueue(txn types.ChannelTransaction) bool
	// Clock makes this cycle's scheduling decision against view, which
	// must already have had Advance called for this cycle.
	Clock(cycle uint64, view *dram.View) Decision
	// Accept reports the per-cycle accept token a client bus broadcasts
	// (spec.md §4.4 "backpressure").
	Accept() types.SchedulerAccept
	// Depth is the total number of transactions still queued.
	Depth() int
}

// nextCommandFor re-derives, from the view's current bank state, the
// single next DRAM command a pending transaction needs: one ACTIVATE if
// its row is not open, one PRECHARGE if the wrong row is open, else one
// READ or WRITE per burst-aligned fragment of the transaction, tracked
// by txn.BurstsIssued (spec.md §4.3/§4.4: a transaction may span several
// bursts within its row). Because ACTIVATE/PRECHARGE are recomputed
// fresh every cycle rather than cached, a scheduler never needs to track
// that part of the command sequence itself.
//
// Every candidate command is checked against view.IssueConstraint before
// being returned; hasCommand is false if the legal next step for txn is
// "wait" (e.g. the shared data pins are still busy with the previous
// fragment). lastBurst is only meaningful when hasCommand is true and the
// command is a READ/WRITE: it reports whether this is the transaction's
// final fragment, the point at which a caller should dequeue/complete it.
func nextCommandFor(view *dram.View, txn types.ChannelTransaction, closePage bool) (cmd types.DRAMCommand, hasCommand bool, lastBurst bool) {
	row, open := view.ActiveRow(txn.Bank)
	if !open {
		cmd = types.DRAMCommand{Kind: types.CmdActivate, Bank: txn.Bank, Row: txn.Row}
		return cmd, view.IssueConstraint(txn.Bank, cmd) == types.ConstraintNone, false
	}
	if row != txn.Row {
		cmd = types.DRAMCommand{Kind: types.CmdPrecharge, Bank: txn.Bank}
		return cmd, view.IssueConstraint(txn.Bank, cmd) == types.ConstraintNone, false
	}

	burstWords := view.BurstWords()
	totalWords := mathx.CeilDiv(txn.ByteLen, 4)
	totalBursts := mathx.CeilDiv(totalWords, burstWords)
	if totalBursts == 0 {
		totalBursts = 1
	}
	burstIdx := txn.BurstsIssued
	lastBurst = burstIdx+1 >= totalBursts
	col := txn.StartCol + burstIdx*burstWords
	autoprecharge := closePage && lastBurst

	if txn.Kind == types.KindRead {
		cmd = types.DRAMCommand{Kind: types.CmdRead, Bank: txn.Bank, Column: col, Autoprecharge: autoprecharge}
		return cmd, view.IssueConstraint(txn.Bank, cmd) == types.ConstraintNone, lastBurst
	}

	byteStart := mathx.Min(burstIdx*burstWords*4, txn.ByteLen)
	byteEnd := mathx.Min(byteStart+burstWords*4, txn.ByteLen)
	data := txn.Data[byteStart:byteEnd]
	var mask []byte
	if txn.ByteMask != nil {
		mask = txn.ByteMask[byteStart:byteEnd]
	}
	burst := types.Burst{Words: bytesToWords(data), Mask: byteMaskToWordMask(mask, len(data))}
	cmd = types.DRAMCommand{Kind: types.CmdWrite, Bank: txn.Bank, Column: col, Burst: burst, Autoprecharge: autoprecharge}
	return cmd, view.IssueConstraint(txn.Bank, cmd) == types.ConstraintNone, lastBurst
}

// isRowHit reports whether txn can be serviced immediately (no
// PRECHARGE/ACTIVATE needed) given view's current state, for bank
// selection comparators that prefer row hits.
func isRowHit(view *dram.View, txn types.ChannelTransaction) bool {
	row, open := view.ActiveRow(txn.Bank)
	return open && row == txn.Row
}

func bytesToWords(data []byte) []uint32 {
	n := (len(data) + 3) / 4
	out := make([]uint32, n)
	for i := 0; i < len(data); i++ {
		out[i/4] |= uint32(data[i]) << uint((i%4)*8)
	}
	return out
}

// byteMaskToWordMask expands a per-byte write mask (nil = all enabled)
// into the burst's per-word nibble mask representation.
func byteMaskToWordMask(mask []byte, dataLen int) []byte {
	n := (dataLen + 3) / 4
	out := make([]byte, n)
	for i := 0; i < dataLen; i++ {
		enabled := mask == nil || mask[i] != 0
		if enabled {
			out[i/4] |= 1 << uint(i%4)
		}
	}
	return out
}
