package dram

import "gddrmc/types"

// View is the read-only mirror of a Module's timing state that channel
// schedulers query to decide what to issue, without ever touching real
// bank storage (spec.md §4.2 "DRAM Module State View"). It is advanced
// once per cycle ahead of any scheduler, then kept in lockstep by
// Observe whenever a scheduler actually issues a command to the real
// Module.
type View struct {
	timing *timing
}

// NewView builds a view sharing the same config as the module it
// mirrors; it starts in lockstep (every bank Idle) and must be kept so
// by calling Observe for every command issued to the real module.
func NewView(cfg types.ModuleConfig) *View {
	return &View{timing: newTiming(cfg)}
}

// Advance applies passive transitions for cycle. Call once per cycle,
// before any scheduler decision for that cycle.
func (v *View) Advance(cycle uint64) { v.timing.advance(cycle) }

// IssueConstraint reports why cmd could not be issued right now, or
// ConstraintNone if it could.
func (v *View) IssueConstraint(bank uint32, cmd types.DRAMCommand) types.ConstraintKind {
	return v.timing.issueConstraint(bank, cmd)
}

// AcceptedCommands returns the bitmask of commands bank currently accepts.
func (v *View) AcceptedCommands(bank uint32) types.AcceptMask { return v.timing.accepted(bank) }

func (v *View) State(bank uint32) types.BankStateID { return v.timing.state(bank) }

func (v *View) ActiveRow(bank uint32) (uint32, bool) { return v.timing.activeRow(bank) }

// BurstWords is the module's configured burst length in words, the unit
// a channel scheduler must fragment a multi-burst transaction along
// (spec.md §4.3/§4.4).
func (v *View) BurstWords() uint32 { return v.timing.burstWords() }

// Observe applies cmd to the mirror's own timing state, keeping it in
// lockstep with whatever the scheduler actually issued to the real
// Module this cycle. The caller must only pass commands that were
// already accepted by the real module (i.e. it must not diverge).
func (v *View) Observe(cmd types.DRAMCommand) {
	if cmd.Kind == types.CmdDummy {
		return
	}
	v.timing.apply(cmd)
}
