package dram

import (
	"gddrmc/bus"
	"gddrmc/types"
)

// Info is the per-cycle state snapshot a DRAM module publishes to the
// trace bus (spec.md §6 "per-cycle info"; SPEC_FULL.md §9.2). It is
// retained (bus.Message.Retained) so a late-subscribing trace consumer
// immediately sees the current cycle's state rather than waiting for
// the next tick.
type Info struct {
	Cycle      uint64
	BankStates []types.BankStateID
	Pin        PinEventKind
	Tag        types.ConstraintKind // DUMMY command annotation; set when Pin is PinDummyTag
}

// Topic is the trace-bus address a module's Info is published under.
func Topic(moduleID string) bus.Topic { return bus.T("dram", moduleID, "info") }

// PublishInfo snapshots the module's current bank states and the pin
// event just resolved, and publishes it retained on conn.
func (m *Module) PublishInfo(conn *bus.Connection, moduleID string, cycle uint64, pin PinEvent) {
	states := make([]types.BankStateID, len(m.banks))
	for i := range m.banks {
		states[i] = m.timing.state(uint32(i))
	}
	conn.Publish(conn.NewMessage(Topic(moduleID), Info{Cycle: cycle, BankStates: states, Pin: pin.Kind, Tag: pin.Tag}, true))
}
