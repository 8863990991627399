package scheduler

import "gddrmc/types"

// inFlightWrite is a write whose data command has been issued to the
// DRAM module but whose completion the dependency tracker hasn't yet
// observed.
type inFlightWrite struct {
	bank, row        uint32
	startCol, endCol uint32
}

// DependencyTracker enforces read-after-write ordering across the split
// read/write FIFO's two independent queues (spec.md §4.4 "dependency
// tracking"): a read may not pass a write to the same bank/row/column
// range that is still in flight, since the two queues would otherwise
// let the scheduler reorder them relative to each other.
type DependencyTracker struct {
	inFlight []inFlightWrite
}

// MarkIssued records a write's data command as in flight.
func (d *DependencyTracker) MarkIssued(txn types.ChannelTransaction) {
	if txn.Kind != types.KindWrite {
		return
	}
	start, end := txn.ColumnRange(4)
	d.inFlight = append(d.inFlight, inFlightWrite{bank: txn.Bank, row: txn.Row, startCol: start, endCol: end})
}

// MarkComplete clears a write once its burst has fully transferred.
func (d *DependencyTracker) MarkComplete(txn types.ChannelTransaction) {
	if txn.Kind != types.KindWrite {
		return
	}
	start, end := txn.ColumnRange(4)
	for i, w := range d.inFlight {
		if w.bank == txn.Bank && w.row == txn.Row && w.startCol == start && w.endCol == end {
			d.inFlight = append(d.inFlight[:i], d.inFlight[i+1:]...)
			return
		}
	}
}

// Blocks reports whether txn (a read) overlaps any write still in
// flight and must therefore wait.
func (d *DependencyTracker) Blocks(txn types.ChannelTransaction) bool {
	if txn.Kind != types.KindRead {
		return false
	}
	start, end := txn.ColumnRange(4)
	for _, w := range d.inFlight {
		if w.bank != txn.Bank || w.row != txn.Row {
			continue
		}
		if start < w.endCol && w.startCol < end {
			return true
		}
	}
	return false
}
