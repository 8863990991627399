package scheduler

import (
	"gddrmc/dram"
	"gddrmc/types"
)

// FIFO is the plain, single-queue channel scheduler (spec.md §4.4
// "plain FIFO"): transactions are serviced strictly in arrival order,
// one DRAM command at a time, re-deriving PRECHARGE/ACTIVATE/READ or
// WRITE from bank state every cycle until the head transaction's data
// command has issued.
type FIFO struct {
	queue     []types.ChannelTransaction
	capacity  uint32
	closePage bool
}

func NewFIFO(cfg types.SchedulerConfig) *FIFO {
	return &FIFO{capacity: cfg.QueueCapacity}
}

func (f *FIFO) WithClosePage(v bool) *FIFO { f.closePage = v; return f }

func (f *FIFO) Enqueue(txn types.ChannelTransaction) bool {
	if uint32(len(f.queue)) >= f.capacity {
		return false
	}
	f.queue = append(f.queue, txn)
	return true
}

func (f *FIFO) Depth() int { return len(f.queue) }

func (f *FIFO) Accept() types.SchedulerAccept {
	if uint32(len(f.queue)) >= f.capacity {
		return types.AcceptNone
	}
	return types.AcceptBoth
}

func (f *FIFO) Clock(cycle uint64, view *dram.View) Decision {
	if len(f.queue) == 0 {
		return Decision{}
	}
	head := f.queue[0]
	cmd, hasCommand, last := nextCommandFor(view, head, f.closePage)
	if !hasCommand {
		return Decision{}
	}
	dec := Decision{Command: cmd, HasCommand: true}
	if cmd.Kind == types.CmdRead || cmd.Kind == types.CmdWrite {
		if last {
			f.queue = f.queue[1:]
			dec.Completed = []types.ChannelTransaction{head}
		} else {
			f.queue[0].BurstsIssued++
		}
	}
	return dec
}
