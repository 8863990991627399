package dram

import "gddrmc/types"

// bankTiming is the timing-relevant state of one bank, independent of its
// actual stored words. Module composes this (through timing) with its
// *Bank storage; the
// ModuleView in moduleview.go composes the same shape with no backing
// storage at all, which is what lets it mirror the module exactly
// (spec.md §4.2).
type bankTiming struct {
	state                types.BankStateID
	endCycle             uint64
	hasEnd               bool
	row                  uint32
	autoprechargePending bool
	lastWriteEnd         uint64
	hasLastWriteEnd      bool
}

type globalTiming struct {
	hasLastActivate   bool
	lastActivateCycle uint64
	lastActivateBank  uint32

	hasLastReadEnd bool
	lastReadEnd    uint64

	hasLastWriteEnd bool
	lastWriteEnd    uint64

	hasDataPinBusy bool
	dataPinBusy    uint64 // exclusive end cycle of the last scheduled burst window
}

// pinWindow describes when a scheduled burst occupies the data pins.
type pinWindow struct {
	start, end uint64 // [start, end)
}

// timing is the shared GDDR3-baseline protocol state machine. It knows
// nothing about the words stored in a bank; it only tracks legality and
// scheduling of commands against the timing rules in spec.md §4.1.
type timing struct {
	cfg   types.ModuleConfig
	banks []bankTiming
	g     globalTiming
	now   uint64
}

func newTiming(cfg types.ModuleConfig) *timing {
	banks := make([]bankTiming, cfg.Banks)
	return &timing{cfg: cfg, banks: banks}
}

// passiveEvent reports a bank whose state changed this cycle without an
// explicit command (spec.md §3 "Passive transitions").
type passiveEvent struct {
	bank     uint32
	from, to types.BankStateID
	// set when a Reading or Writing bank's burst just completed; the
	// column and length of that burst are not recorded here.
	readCompleted  bool
	writeCompleted bool
}

// advance applies every passive transition whose end_cycle has been
// reached (spec.md §4.1 step 1). Must be called once per cycle, for every
// cycle, in increasing order.
func (t *timing) advance(cycle uint64) []passiveEvent {
	t.now = cycle
	var events []passiveEvent
	for b := range t.banks {
		bt := &t.banks[b]
		if !bt.hasEnd || bt.endCycle > cycle {
			continue
		}
		from := bt.state
		switch bt.state {
		case types.BankActivating:
			bt.state = types.BankActive
			bt.hasEnd = false
			events = append(events, passiveEvent{bank: uint32(b), from: from, to: bt.state})
		case types.BankReading:
			t.resolveAutoprecharge(bt, cycle, t.cfg.Timing.CASLatency)
			events = append(events, passiveEvent{bank: uint32(b), from: from, to: bt.state, readCompleted: true})
		case types.BankWriting:
			bt.lastWriteEnd = cycle
			bt.hasLastWriteEnd = true
			t.resolveAutoprecharge(bt, cycle, t.cfg.Timing.WriteLatency)
			events = append(events, passiveEvent{bank: uint32(b), from: from, to: bt.state, writeCompleted: true})
		case types.BankPrecharging:
			bt.state = types.BankIdle
			bt.hasEnd = false
			bt.autoprechargePending = false
			events = append(events, passiveEvent{bank: uint32(b), from: from, to: bt.state})
		}
	}
	return events
}

// resolveAutoprecharge implements the open-question decision in
// SPEC_FULL.md §12.1: if autoprecharge is pending, decide whether the
// bank can go idle immediately (precharge absorbed by the data-phase
// overlap) or must spend a residual number of cycles Precharging.
func (t *timing) resolveAutoprecharge(bt *bankTiming, completionCycle uint64, dataPhaseLatency uint32) {
	if !bt.autoprechargePending {
		bt.state = types.BankActive
		bt.hasEnd = false
		return
	}
	bt.autoprechargePending = false
	tRP := t.cfg.Timing.TRP
	burstCycles := t.cfg.BurstCycles()
	overlap := dataPhaseLatency + burstCycles // cycles already elapsed since issue by completion
	if overlap == 0 {
		overlap = 1
	}
	if tRP+1 <= overlap {
		bt.state = types.BankIdle
		bt.hasEnd = false
		bt.row = 0
	} else {
		residual := tRP - (overlap - 1)
		bt.state = types.BankPrecharging
		bt.endCycle = completionCycle + uint64(residual)
		bt.hasEnd = true
	}
}

// issueConstraint is the pure query spec.md §4.2 exposes to schedulers: it
// never mutates state.
func (t *timing) issueConstraint(bank uint32, cmd types.DRAMCommand) types.ConstraintKind {
	if cmd.Kind == types.CmdDummy {
		return types.ConstraintNone
	}
	if cmd.Kind == types.CmdPrecharge && cmd.Bank == types.AllBanks {
		for b := range t.banks {
			if c := t.issueConstraintOne(uint32(b), cmd); c != types.ConstraintNone {
				return c
			}
		}
		return types.ConstraintNone
	}
	return t.issueConstraintOne(bank, cmd)
}

func (t *timing) issueConstraintOne(bank uint32, cmd types.DRAMCommand) types.ConstraintKind {
	if int(bank) >= len(t.banks) {
		return types.ConstraintNone
	}
	bt := &t.banks[bank]
	switch cmd.Kind {
	case types.CmdActivate:
		switch bt.state {
		case types.BankActive, types.BankReading, types.BankWriting, types.BankActivating:
			return types.ConstraintActWithOpenRow
		case types.BankPrecharging:
			return types.ConstraintPreToAct
		}
		if t.g.hasLastActivate && bank != t.g.lastActivateBank && t.now-t.g.lastActivateCycle < uint64(t.cfg.Timing.TRRD) {
			return types.ConstraintActToAct
		}
		return types.ConstraintNone

	case types.CmdRead:
		if bt.autoprechargePending {
			return types.ConstraintAutoprechargeRead
		}
		switch bt.state {
		case types.BankIdle, types.BankPrecharging:
			return types.ConstraintNoActWithRead
		case types.BankActivating:
			return types.ConstraintActToRead
		}
		if t.g.hasLastWriteEnd && t.now < t.g.lastWriteEnd+uint64(t.cfg.Timing.TWTR) {
			return types.ConstraintWriteToRead
		}
		if c := t.dataBusConflict(t.now + uint64(t.cfg.Timing.CASLatency)); c != types.ConstraintNone {
			return c
		}
		return types.ConstraintNone

	case types.CmdWrite:
		if bt.autoprechargePending {
			return types.ConstraintAutoprechargeWrite
		}
		switch bt.state {
		case types.BankIdle, types.BankPrecharging:
			return types.ConstraintNoActWithWrite
		case types.BankActivating:
			return types.ConstraintActToWrite
		}
		if t.g.hasLastReadEnd && t.now < t.g.lastReadEnd+uint64(t.cfg.Timing.TRTW) {
			return types.ConstraintReadToWrite
		}
		if c := t.dataBusConflict(t.now + uint64(t.cfg.Timing.WriteLatency)); c != types.ConstraintNone {
			return c
		}
		return types.ConstraintNone

	case types.CmdPrecharge:
		switch bt.state {
		case types.BankIdle, types.BankPrecharging:
			return types.ConstraintNone
		case types.BankActivating:
			return types.ConstraintActToPre
		case types.BankReading:
			return types.ConstraintReadToPre
		case types.BankWriting:
			return types.ConstraintWriteToPre
		case types.BankActive:
			if bt.hasLastWriteEnd && t.now < bt.lastWriteEnd+uint64(t.cfg.Timing.TWR) {
				return types.ConstraintWriteToPre
			}
			return types.ConstraintNone
		}
	}
	return types.ConstraintNone
}

// dataBusConflict checks whether a new burst window starting at `start`
// would overlap the last scheduled window (spec.md §4.1 "data-pin
// collision").
func (t *timing) dataBusConflict(start uint64) types.ConstraintKind {
	if t.g.hasDataPinBusy && start < t.g.dataPinBusy {
		return types.ConstraintDataBusConflict
	}
	return types.ConstraintNone
}

// apply performs the active-command state transition. Callers must have
// already confirmed issueConstraint(...) == ConstraintNone; if that
// invariant was violated, apply changes no state and returns the non-None
// constraint, which Module.Issue raises as a fatal fault (spec.md §4.1
// step 2 "record constraint violations as fatal").
func (t *timing) apply(cmd types.DRAMCommand) (pinWindow, bool, types.ConstraintKind) {
	if c := t.issueConstraint(cmd.Bank, cmd); c != types.ConstraintNone {
		return pinWindow{}, false, c
	}
	switch cmd.Kind {
	case types.CmdActivate:
		bt := &t.banks[cmd.Bank]
		bt.state = types.BankActivating
		bt.endCycle = t.now + uint64(t.cfg.Timing.TRCD)
		bt.hasEnd = true
		bt.row = cmd.Row
		t.g.hasLastActivate = true
		t.g.lastActivateCycle = t.now
		t.g.lastActivateBank = cmd.Bank
		return pinWindow{}, false, types.ConstraintNone

	case types.CmdRead:
		bt := &t.banks[cmd.Bank]
		bt.state = types.BankReading
		bt.endCycle = t.now + uint64(t.cfg.Timing.CASLatency) + uint64(t.cfg.BurstCycles())
		bt.hasEnd = true
		bt.autoprechargePending = cmd.Autoprecharge
		w := pinWindow{start: t.now + uint64(t.cfg.Timing.CASLatency), end: bt.endCycle}
		t.g.hasLastReadEnd = true
		t.g.lastReadEnd = w.end
		t.g.hasDataPinBusy = true
		t.g.dataPinBusy = w.end
		return w, true, types.ConstraintNone

	case types.CmdWrite:
		bt := &t.banks[cmd.Bank]
		bt.state = types.BankWriting
		bt.endCycle = t.now + uint64(t.cfg.Timing.WriteLatency) + uint64(t.cfg.BurstCycles())
		bt.hasEnd = true
		bt.autoprechargePending = cmd.Autoprecharge
		w := pinWindow{start: t.now + uint64(t.cfg.Timing.WriteLatency), end: bt.endCycle}
		t.g.hasLastWriteEnd = true
		t.g.lastWriteEnd = w.end
		t.g.hasDataPinBusy = true
		t.g.dataPinBusy = w.end
		return w, true, types.ConstraintNone

	case types.CmdPrecharge:
		if cmd.Bank == types.AllBanks {
			for b := range t.banks {
				t.prechargeOne(uint32(b))
			}
			return pinWindow{}, false, types.ConstraintNone
		}
		t.prechargeOne(cmd.Bank)
		return pinWindow{}, false, types.ConstraintNone

	case types.CmdDummy:
		return pinWindow{}, false, types.ConstraintNone
	}
	return pinWindow{}, false, types.ConstraintNone
}

func (t *timing) prechargeOne(bank uint32) {
	bt := &t.banks[bank]
	if bt.state == types.BankIdle || bt.state == types.BankPrecharging {
		return
	}
	bt.state = types.BankPrecharging
	bt.endCycle = t.now + uint64(t.cfg.Timing.TRP)
	bt.hasEnd = true
}

// accepted returns the bitmask of commands this bank would currently
// accept (spec.md §4.2).
func (t *timing) accepted(bank uint32) types.AcceptMask {
	var mask types.AcceptMask
	probe := func(kind types.CommandKind) types.DRAMCommand {
		return types.DRAMCommand{Kind: kind, Bank: bank}
	}
	if t.issueConstraint(bank, probe(types.CmdActivate)) == types.ConstraintNone {
		mask |= types.AcceptActivate
	}
	if t.issueConstraint(bank, probe(types.CmdPrecharge)) == types.ConstraintNone {
		mask |= types.AcceptPrecharge
	}
	if t.issueConstraint(bank, probe(types.CmdRead)) == types.ConstraintNone {
		mask |= types.AcceptRead
	}
	if t.issueConstraint(bank, probe(types.CmdWrite)) == types.ConstraintNone {
		mask |= types.AcceptWrite
	}
	return mask
}

func (t *timing) burstWords() uint32 { return t.cfg.BurstLength }

func (t *timing) state(bank uint32) types.BankStateID { return t.banks[bank].state }
func (t *timing) activeRow(bank uint32) (uint32, bool) {
	bt := t.banks[bank]
	if bt.state == types.BankActive || bt.state == types.BankReading || bt.state == types.BankWriting {
		return bt.row, true
	}
	return 0, false
}
