package dram

import (
	"testing"

	"gddrmc/corefault"
	"gddrmc/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() types.ModuleConfig {
	return types.ModuleConfig{
		Banks:              4,
		Rows:               8,
		Cols:               8,
		BurstLength:        4,
		BurstBytesPerCycle: 4,
		Timing:             types.CustomProfile(2, 2, 2, 2, 2, 4, 2, 2),
	}
}

// driveTo issues no commands and just advances cycles, calling
// ResolveDataPins every cycle, collecting every data-transfer event
// (PinReadData or PinWriteConsumed); idle and wait events are skipped.
func driveTo(t *testing.T, m *Module, from, to uint64) []PinEvent {
	var events []PinEvent
	for c := from; c <= to; c++ {
		m.AdvancePassive(c)
		ev := m.ResolveDataPins(c)
		if ev.Kind == PinReadData || ev.Kind == PinWriteConsumed {
			events = append(events, ev)
		}
	}
	return events
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	cfg := testConfig()
	rec := &corefault.Recorder{}
	m := NewModule(cfg, rec, uuid.New(), "test")

	cycle := uint64(0)
	m.AdvancePassive(cycle)
	require.Equal(t, types.ConstraintNone, m.IssueConstraint(0, types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 3}))
	m.Issue(cycle, types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 3})
	m.ResolveDataPins(cycle)

	// wait out tRCD before issuing WRITE.
	cycle += uint64(cfg.Timing.TRCD)
	m.AdvancePassive(cycle)
	require.Equal(t, types.BankActive, m.State(0))

	words := []uint32{10, 20, 30, 40}
	writeCmd := types.DRAMCommand{
		Kind: types.CmdWrite, Bank: 0, Column: 2,
		Burst: types.Burst{Words: words, Mask: []byte{0x0F, 0x0F, 0x0F, 0x0F}},
	}
	require.Equal(t, types.ConstraintNone, m.IssueConstraint(0, writeCmd))
	m.Issue(cycle, writeCmd)
	m.ResolveDataPins(cycle)

	writeEnd := cycle + uint64(cfg.Timing.WriteLatency) + uint64(cfg.BurstCycles())
	events := driveTo(t, m, cycle+1, writeEnd)
	require.Len(t, events, 1)
	require.Equal(t, PinWriteConsumed, events[0].Kind)

	// tWTR must elapse before a READ is legal after this WRITE.
	cycle = writeEnd + uint64(cfg.Timing.TWTR)
	m.AdvancePassive(cycle)
	require.Equal(t, types.BankActive, m.State(0))

	readCmd := types.DRAMCommand{Kind: types.CmdRead, Bank: 0, Column: 2}
	require.Equal(t, types.ConstraintNone, m.IssueConstraint(0, readCmd))
	m.Issue(cycle, readCmd)
	m.ResolveDataPins(cycle)

	readEnd := cycle + uint64(cfg.Timing.CASLatency) + uint64(cfg.BurstCycles())
	events = driveTo(t, m, cycle+1, readEnd)
	require.Len(t, events, 1)
	require.Equal(t, PinReadData, events[0].Kind)
	require.Equal(t, words, events[0].Burst.Words)

	require.Empty(t, rec.Faults)
}

func TestReadWithNoOpenRowFaults(t *testing.T) {
	cfg := testConfig()
	rec := &corefault.Recorder{}
	m := NewModule(cfg, rec, uuid.New(), "test")

	m.AdvancePassive(0)
	require.Equal(t, types.ConstraintNoActWithRead, m.IssueConstraint(0, types.DRAMCommand{Kind: types.CmdRead, Bank: 0, Column: 0}))

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected Issue to panic on a constraint violation")
			}
		}()
		m.Issue(0, types.DRAMCommand{Kind: types.CmdRead, Bank: 0, Column: 0})
	}()

	require.Len(t, rec.Faults, 1)
	require.Equal(t, types.ConstraintNoActWithRead.String(), rec.Faults[0].Cause)
}

func TestActToActRespectsTRRD(t *testing.T) {
	cfg := testConfig()
	rec := &corefault.Recorder{}
	m := NewModule(cfg, rec, uuid.New(), "test")

	m.AdvancePassive(0)
	m.Issue(0, types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 1})
	m.ResolveDataPins(0)

	// bank 1 activate one cycle later, before tRRD elapses.
	m.AdvancePassive(1)
	require.Equal(t, types.ConstraintActToAct, m.IssueConstraint(1, types.DRAMCommand{Kind: types.CmdActivate, Bank: 1, Row: 2}))
}

func TestPreloadBypassesTiming(t *testing.T) {
	cfg := testConfig()
	m := NewModule(cfg, nil, uuid.New(), "test")
	require.NoError(t, m.Preload(2, 1, 0, []uint32{1, 2, 3, 4}))
	require.NoError(t, m.Bank(2).Activate(1))
	words, err := m.Bank(2).ReadBurst(0, 4)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3, 4}, words)
}
