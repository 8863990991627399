package scheduler

import (
	"gddrmc/dram"
	"gddrmc/types"
)

// BankQueue is the per-bank-queue channel scheduler (spec.md §4.4
// "per-bank queue with Precharge/Active Managers"): one independent
// FIFO per bank, a bank-selection policy choosing which bank's head
// transaction to service this cycle, and optional managers that use
// otherwise-idle cycles to opportunistically precharge or activate
// banks the selected candidate isn't using this cycle.
type BankQueue struct {
	queues           [][]types.ChannelTransaction
	perBankCap       uint32
	closePage        bool
	selector         *BankSelectionPolicy
	consecutiveHits  []uint32
	lastBank         []int32 // -1 per bank; Clock does not update it
	prechargeManager bool
	activeManager    bool
	managersOrder    []string
	policy           SwitchPolicy
}

func NewBankQueue(cfg types.SchedulerConfig, banks uint32, selector *BankSelectionPolicy, policy SwitchPolicy) *BankQueue {
	lastBank := make([]int32, banks)
	for i := range lastBank {
		lastBank[i] = -1
	}
	order := cfg.ManagersOrder
	if len(order) == 0 {
		order = []string{"precharge", "active"}
	}
	return &BankQueue{
		queues:           make([][]types.ChannelTransaction, banks),
		perBankCap:       cfg.PerBankQueueCapacity,
		selector:         selector,
		consecutiveHits:  make([]uint32, banks),
		lastBank:         lastBank,
		prechargeManager: cfg.PrechargeManager,
		activeManager:    cfg.ActiveManager,
		managersOrder:    order,
		policy:           policy,
	}
}

func (q *BankQueue) WithClosePage(v bool) *BankQueue { q.closePage = v; return q }

func (q *BankQueue) Enqueue(txn types.ChannelTransaction) bool {
	b := txn.Bank
	if uint32(len(q.queues[b])) >= q.perBankCap {
		return false
	}
	q.queues[b] = append(q.queues[b], txn)
	return true
}

func (q *BankQueue) Depth() int {
	n := 0
	for _, bq := range q.queues {
		n += len(bq)
	}
	return n
}

func (q *BankQueue) Accept() types.SchedulerAccept {
	for _, bq := range q.queues {
		if uint32(len(bq)) < q.perBankCap {
			return types.AcceptBoth
		}
	}
	return types.AcceptNone
}

func (q *BankQueue) candidates(view *dram.View) []BankCandidate {
	var out []BankCandidate
	for b, bq := range q.queues {
		if len(bq) == 0 {
			continue
		}
		head := bq[0]
		out = append(out, BankCandidate{
			Bank:            uint32(b),
			Txn:             head,
			RowHit:          isRowHit(view, head),
			ConsecutiveHits: q.consecutiveHits[b],
			PendingRequests: uint32(len(bq) - 1),
		})
	}
	return out
}

func (q *BankQueue) Clock(cycle uint64, view *dram.View) Decision {
	if cands := q.candidates(view); len(cands) > 0 {
		if chosen, ok := q.selector.Select(cands); ok {
			cmd, hasCommand, last := nextCommandFor(view, chosen.Txn, q.closePage)
			if hasCommand {
				dec := Decision{Command: cmd, HasCommand: true}
				if cmd.Kind == types.CmdRead || cmd.Kind == types.CmdWrite {
					b := chosen.Bank
					if last {
						if chosen.RowHit {
							q.consecutiveHits[b]++
						} else {
							q.consecutiveHits[b] = 0
						}
						q.queues[b] = q.queues[b][1:]
						dec.Completed = []types.ChannelTransaction{chosen.Txn}
					} else {
						q.queues[b][0].BurstsIssued++
					}
				}
				return dec
			}
		}
	}
	if cmd, did := q.runManagers(view); did {
		return Decision{Command: cmd, HasCommand: true}
	}
	return Decision{}
}

// runManagers tries the Precharge and Active Managers (spec.md §4.4.c)
// in the configured relative order, using an otherwise-idle cycle — one
// where the selected candidate, if any, had no legal command to issue —
// to prepare other banks' rows ahead of time.
func (q *BankQueue) runManagers(view *dram.View) (types.DRAMCommand, bool) {
	for _, name := range q.managersOrder {
		switch name {
		case "precharge":
			if !q.prechargeManager {
				continue
			}
			if cmd, did := q.opportunisticPrecharge(view); did {
				return cmd, true
			}
		case "active":
			if !q.activeManager {
				continue
			}
			if cmd, did := q.opportunisticActivate(view); did {
				return cmd, true
			}
		}
	}
	return types.DRAMCommand{}, false
}

// opportunisticPrecharge issues PRECHARGE on any other bank whose head
// transaction targets a row different from the one currently open on
// that bank, preparing it ahead of time (spec.md §4.4.c "Precharge
// Manager").
func (q *BankQueue) opportunisticPrecharge(view *dram.View) (types.DRAMCommand, bool) {
	for b, bq := range q.queues {
		if len(bq) == 0 {
			continue
		}
		row, open := view.ActiveRow(uint32(b))
		if !open || row == bq[0].Row {
			continue
		}
		cmd := types.DRAMCommand{Kind: types.CmdPrecharge, Bank: uint32(b)}
		if view.IssueConstraint(uint32(b), cmd) != types.ConstraintNone {
			continue
		}
		return cmd, true
	}
	return types.DRAMCommand{}, false
}

// opportunisticActivate issues ACTIVATE for any other bank that has a
// head transaction and a closed row, subject to the switch-operation-
// mode budget: it only pre-opens a bank whose head matches the policy's
// currently favored direction, so a read-favoring cycle does not spend
// the bank's command slot opening a bank for a write it will not issue
// soon (spec.md §4.4.c "Active Manager").
func (q *BankQueue) opportunisticActivate(view *dram.View) (types.DRAMCommand, bool) {
	readsExist, writesExist, readRowHit, writeRowHit := q.switchState(view)
	mode := q.policy.Advance(readsExist, writesExist, readRowHit, writeRowHit)
	for b, bq := range q.queues {
		if len(bq) == 0 {
			continue
		}
		head := bq[0]
		if opModeOf(head.Kind) != mode {
			continue
		}
		if _, open := view.ActiveRow(uint32(b)); open {
			continue
		}
		cmd := types.DRAMCommand{Kind: types.CmdActivate, Bank: uint32(b), Row: head.Row}
		if view.IssueConstraint(uint32(b), cmd) != types.ConstraintNone {
			continue
		}
		q.policy.RecordIssue(mode)
		return cmd, true
	}
	return types.DRAMCommand{}, false
}

// switchState aggregates read/write availability and row-hit status
// across every bank's head transaction, for the Active Manager's
// switch-operation-mode query (spec.md §4.6).
func (q *BankQueue) switchState(view *dram.View) (readsExist, writesExist, readRowHit, writeRowHit bool) {
	for _, bq := range q.queues {
		if len(bq) == 0 {
			continue
		}
		head := bq[0]
		hit := isRowHit(view, head)
		if head.Kind == types.KindRead {
			readsExist = true
			if hit {
				readRowHit = true
			}
		} else {
			writesExist = true
			if hit {
				writeRowHit = true
			}
		}
	}
	return
}

func opModeOf(k types.TxnKind) OpMode {
	if k == types.KindWrite {
		return OpWrite
	}
	return OpRead
}
