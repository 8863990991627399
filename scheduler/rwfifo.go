package scheduler

import (
	"gddrmc/dram"
	"gddrmc/types"
	"gddrmc/x/mathx"
)

// SplitRWFIFO is the split read/write FIFO scheduler (spec.md §4.4
// "split R/W FIFO with dependency tracking"): independent read and
// write queues, a switch-operation-mode policy deciding which queue to
// favor, and a DependencyTracker preventing a read from passing a write
// still in flight to the same bank/row/column range.
type SplitRWFIFO struct {
	reads, writes      []types.ChannelTransaction
	readCap, writeCap  uint32
	closePage          bool
	policy             SwitchPolicy
	dep                DependencyTracker
}

func NewSplitRWFIFO(cfg types.SchedulerConfig, policy SwitchPolicy) *SplitRWFIFO {
	// DedicatedReads carves reserved read slots out of the shared queue
	// capacity; a misconfigured DedicatedReads larger than QueueCapacity
	// leaves no room for writes rather than underflowing.
	dedicated := mathx.Min(cfg.DedicatedReads, cfg.QueueCapacity)
	return &SplitRWFIFO{
		readCap:  cfg.QueueCapacity,
		writeCap: cfg.QueueCapacity - dedicated,
		policy:   policy,
	}
}

func (s *SplitRWFIFO) WithClosePage(v bool) *SplitRWFIFO { s.closePage = v; return s }

func (s *SplitRWFIFO) Enqueue(txn types.ChannelTransaction) bool {
	if txn.Kind == types.KindRead {
		if uint32(len(s.reads)) >= s.readCap {
			return false
		}
		s.reads = append(s.reads, txn)
		return true
	}
	if uint32(len(s.writes)) >= s.writeCap {
		return false
	}
	s.writes = append(s.writes, txn)
	return true
}

func (s *SplitRWFIFO) Depth() int { return len(s.reads) + len(s.writes) }

func (s *SplitRWFIFO) Accept() types.SchedulerAccept {
	readFull := uint32(len(s.reads)) >= s.readCap
	writeFull := uint32(len(s.writes)) >= s.writeCap
	switch {
	case readFull && writeFull:
		return types.AcceptNone
	case readFull:
		return types.AcceptWriteOnly
	case writeFull:
		return types.AcceptReadOnly
	default:
		return types.AcceptBoth
	}
}

// NotifyWriteComplete must be called once a write's burst has fully
// transferred into the bank, freeing any read blocked behind it.
func (s *SplitRWFIFO) NotifyWriteComplete(txn types.ChannelTransaction) { s.dep.MarkComplete(txn) }

func (s *SplitRWFIFO) tryRead() (types.ChannelTransaction, bool) {
	if len(s.reads) == 0 {
		return types.ChannelTransaction{}, false
	}
	head := s.reads[0]
	if s.dep.Blocks(head) {
		return types.ChannelTransaction{}, false
	}
	return head, true
}

func (s *SplitRWFIFO) tryWrite() (types.ChannelTransaction, bool) {
	if len(s.writes) == 0 {
		return types.ChannelTransaction{}, false
	}
	return s.writes[0], true
}

func (s *SplitRWFIFO) pick(mode OpMode) (txn types.ChannelTransaction, isWrite, ok bool) {
	if mode == OpRead {
		if h, found := s.tryRead(); found {
			return h, false, true
		}
		if h, found := s.tryWrite(); found {
			return h, true, true
		}
		return types.ChannelTransaction{}, false, false
	}
	if h, found := s.tryWrite(); found {
		return h, true, true
	}
	if h, found := s.tryRead(); found {
		return h, false, true
	}
	return types.ChannelTransaction{}, false, false
}

// switchState reports the aggregate read/write availability and
// row-hit information the switch-operation-mode policy needs (spec.md
// §4.6 "update(reads_exist, writes_exist, read_is_row_hit,
// write_is_row_hit)").
func (s *SplitRWFIFO) switchState(view *dram.View) (readsExist, writesExist, readRowHit, writeRowHit bool) {
	if h, ok := s.tryRead(); ok {
		readsExist = true
		readRowHit = isRowHit(view, h)
	}
	if h, ok := s.tryWrite(); ok {
		writesExist = true
		writeRowHit = isRowHit(view, h)
	}
	return
}

func (s *SplitRWFIFO) Clock(cycle uint64, view *dram.View) Decision {
	readsExist, writesExist, readRowHit, writeRowHit := s.switchState(view)
	mode := s.policy.Advance(readsExist, writesExist, readRowHit, writeRowHit)
	txn, isWrite, ok := s.pick(mode)
	if !ok {
		return Decision{}
	}
	cmd, hasCommand, last := nextCommandFor(view, txn, s.closePage)
	if !hasCommand {
		return Decision{}
	}
	dec := Decision{Command: cmd, HasCommand: true}
	if cmd.Kind == types.CmdRead || cmd.Kind == types.CmdWrite {
		s.policy.RecordIssue(mode)
		if isWrite {
			if txn.BurstsIssued == 0 {
				s.dep.MarkIssued(txn)
			}
			if last {
				s.writes = s.writes[1:]
				dec.Completed = []types.ChannelTransaction{txn}
			} else {
				s.writes[0].BurstsIssued++
			}
		} else {
			if last {
				s.reads = s.reads[1:]
				dec.Completed = []types.ChannelTransaction{txn}
			} else {
				s.reads[0].BurstsIssued++
			}
		}
	}
	return dec
}
