package dram

import (
	"gddrmc/corefault"
	"gddrmc/errcode"
	"gddrmc/types"

	"github.com/google/uuid"
)

// PinEventKind classifies what, if anything, appeared on the data pins
// this cycle (spec.md §4.1 step 3).
type PinEventKind uint8

const (
	PinIdle PinEventKind = iota
	PinReadData
	PinWriteConsumed
	PinCASWait
	PinWLWait
	PinDummyTag
)

// PinEvent is the per-cycle output of the shared command/data port.
type PinEvent struct {
	Kind  PinEventKind
	Bank  uint32
	Burst types.Burst
	Tag   types.ConstraintKind // populated for PinDummyTag
}

// pendingOp tracks one issued burst until its data-pin window ends; the
// timing state machine's data-bus-conflict check keeps those windows from
// overlapping, so at most one pendingOp completes in any cycle.
type pendingOp struct {
	bank     uint32
	col      uint32
	isWrite  bool
	words    []uint32
	byteMask []byte
	endCycle uint64
}

// Module is one DRAM module: its banks, its GDDR timing state machine,
// and the shared command/data-pin port a channel scheduler drives
// (spec.md §3 "DRAM Module", §4.1).
type Module struct {
	cfg      types.ModuleConfig
	banks    []*Bank
	timing   *timing
	pending  []pendingOp // issued bursts whose data-pin window has not yet ended
	dummyTag types.ConstraintKind
	hasDummy bool

	sink      corefault.Sink
	runID     uuid.UUID
	component string
}

// NewModule allocates a module from a validated config.
func NewModule(cfg types.ModuleConfig, sink corefault.Sink, runID uuid.UUID, component string) *Module {
	banks := make([]*Bank, cfg.Banks)
	for i := range banks {
		banks[i] = NewBank(cfg.Rows, cfg.Cols)
	}
	return &Module{
		cfg:       cfg,
		banks:     banks,
		timing:    newTiming(cfg),
		sink:      sink,
		runID:     runID,
		component: component,
	}
}

func (m *Module) Bank(i uint32) *Bank { return m.banks[i] }

func (m *Module) fault(cycle uint64, code errcode.Code, cause string, detail map[string]any) {
	corefault.Raise(m.sink, m.runID, cycle, m.component, code, cause, detail)
}

// AcceptedCommands mirrors spec.md §4.2's ModuleView query; Module exposes
// it directly too since it is the authority the view mirrors.
func (m *Module) AcceptedCommands(bank uint32) types.AcceptMask { return m.timing.accepted(bank) }

func (m *Module) IssueConstraint(bank uint32, cmd types.DRAMCommand) types.ConstraintKind {
	return m.timing.issueConstraint(bank, cmd)
}

func (m *Module) State(bank uint32) types.BankStateID { return m.timing.state(bank) }

func (m *Module) ActiveRow(bank uint32) (uint32, bool) { return m.timing.activeRow(bank) }

// AdvancePassive runs step 1 of the per-cycle algorithm in spec.md §4.1:
// every bank whose end_cycle has been reached this cycle makes its
// passive transition. Callers must run this before consulting a View or
// calling Issue for the same cycle.
func (m *Module) AdvancePassive(cycle uint64) { m.timing.advance(cycle) }

// ResolveDataPins runs step 3: it delivers the read/write burst whose
// transfer completes this cycle, or else reports why the pins are idle
// (spec.md §4.1 step 3). Callers must run this after any Issue call for
// the same cycle.
func (m *Module) ResolveDataPins(cycle uint64) PinEvent {
	for i := range m.pending {
		p := m.pending[i]
		if p.endCycle != cycle {
			continue
		}
		if p.isWrite {
			if err := m.banks[p.bank].WriteBurst(p.col, p.words, p.byteMask); err != nil {
				m.fault(cycle, errcode.StateMismatch, err.Error(), map[string]any{"bank": p.bank})
			}
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return PinEvent{Kind: PinWriteConsumed, Bank: p.bank}
		}
		words, err := m.banks[p.bank].ReadBurst(p.col, uint32(len(p.words)))
		if err != nil {
			m.fault(cycle, errcode.StateMismatch, err.Error(), map[string]any{"bank": p.bank})
		}
		m.pending = append(m.pending[:i], m.pending[i+1:]...)
		return PinEvent{Kind: PinReadData, Bank: p.bank, Burst: types.Burst{Words: words, Mask: fullWordMask(len(words))}}
	}

	for _, p := range m.pending {
		if cycle < p.endCycle {
			if p.isWrite {
				return PinEvent{Kind: PinWLWait, Bank: p.bank}
			}
			return PinEvent{Kind: PinCASWait, Bank: p.bank}
		}
	}
	if m.hasDummy {
		tag := m.dummyTag
		m.hasDummy = false
		return PinEvent{Kind: PinDummyTag, Tag: tag}
	}
	return PinEvent{Kind: PinIdle}
}

func fullWordMask(n int) []byte {
	m := make([]byte, n)
	for i := range m {
		m[i] = 0x0F
	}
	return m
}

// Issue applies a single command this cycle. Any constraint violation is
// fatal (spec.md §4.1 step 2, §7 "any illegal protocol sequence"): by
// construction a scheduler must only ever submit commands its
// ModuleView.IssueConstraint already reported as ConstraintNone.
func (m *Module) Issue(cycle uint64, cmd types.DRAMCommand) {
	if cmd.Kind == types.CmdDummy {
		m.hasDummy = true
		m.dummyTag = cmd.ConstraintTag
		return
	}
	m.timing.now = cycle
	win, hasWindow, violation := m.timing.apply(cmd)
	if violation != types.ConstraintNone {
		m.fault(cycle, errcode.ProtoViolation, violation.String(), map[string]any{
			"bank": cmd.Bank, "command": cmd.Kind.String(),
		})
		return
	}
	switch cmd.Kind {
	case types.CmdActivate:
		if err := m.banks[cmd.Bank].Activate(cmd.Row); err != nil {
			// Activate() only errors if the timing layer already thought
			// the row was closed; that is itself a state mismatch bug.
			m.fault(cycle, errcode.StateMismatch, err.Error(), map[string]any{"bank": cmd.Bank})
		}
	case types.CmdRead:
		if !hasWindow {
			return
		}
		m.pending = append(m.pending, pendingOp{
			bank: cmd.Bank, col: cmd.Column, isWrite: false,
			words: make([]uint32, m.cfg.BurstLength), endCycle: win.end,
		})
	case types.CmdWrite:
		if !hasWindow {
			return
		}
		m.pending = append(m.pending, pendingOp{
			bank: cmd.Bank, col: cmd.Column, isWrite: true,
			words: cmd.Burst.Words, byteMask: cmd.Burst.Mask, endCycle: win.end,
		})
	case types.CmdPrecharge:
		if cmd.Bank == types.AllBanks {
			for _, b := range m.banks {
				b.Precharge()
			}
		} else {
			m.banks[cmd.Bank].Precharge()
		}
	}
}
