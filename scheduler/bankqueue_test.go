package scheduler

import (
	"testing"

	"gddrmc/dram"
	"gddrmc/types"

	"github.com/stretchr/testify/require"
)

func bankQueueModuleConfig() types.ModuleConfig {
	return types.ModuleConfig{Banks: 2, Rows: 4, Cols: 8, BurstLength: 4, BurstBytesPerCycle: 4}
}

func newBankQueue(cfg types.SchedulerConfig, banks uint32) *BankQueue {
	selector := NewBankSelectionPolicy([]types.BankCompareKind{types.CompareOldestFirst}, banks, 1)
	return NewBankQueue(cfg, banks, selector, NewSwitchPolicy(cfg))
}

func TestBankQueuePerBankCapacity(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 1}
	q := newBankQueue(cfg, 2)

	require.True(t, q.Enqueue(types.ChannelTransaction{Bank: 0}))
	require.False(t, q.Enqueue(types.ChannelTransaction{Bank: 0}), "bank 0 queue at capacity")
	require.True(t, q.Enqueue(types.ChannelTransaction{Bank: 1}))
	require.Equal(t, 2, q.Depth())
}

func TestBankQueueOpportunisticPrechargePreparesMismatchedRow(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4, PrechargeManager: true}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)
	view.Observe(types.DRAMCommand{Kind: types.CmdActivate, Bank: 1, Row: 1})
	view.Advance(1)

	// Bank 1's open row is 1, but its head transaction wants row 2: the
	// Precharge Manager should prepare it ahead of time (spec.md §4.4.c).
	require.True(t, q.Enqueue(types.ChannelTransaction{Kind: types.KindRead, Bank: 1, Row: 2, ByteLen: 16}))

	cmd, did := q.opportunisticPrecharge(view)
	require.True(t, did)
	require.Equal(t, types.CmdPrecharge, cmd.Kind)
	require.Equal(t, uint32(1), cmd.Bank)
}

func TestBankQueueOpportunisticPrechargeSkipsMatchingRow(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4, PrechargeManager: true}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)
	view.Observe(types.DRAMCommand{Kind: types.CmdActivate, Bank: 1, Row: 1})
	view.Advance(1)

	require.True(t, q.Enqueue(types.ChannelTransaction{Kind: types.KindRead, Bank: 1, Row: 1, ByteLen: 16}))

	_, did := q.opportunisticPrecharge(view)
	require.False(t, did, "head transaction already targets the open row")
}

func TestBankQueueNoPrechargeWithoutManagerEnabled(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)
	view.Observe(types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 1})
	view.Advance(1)

	dec := q.Clock(1, view)
	require.False(t, dec.HasCommand)
}

func TestBankQueueActiveManagerOpensBankMatchingSwitchMode(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4, ActiveManager: true}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)

	// Only a write is pending anywhere, on a bank with a closed row; the
	// switch policy has nothing but write work to favor, so the Active
	// Manager should pre-open it (spec.md §4.4.c "Active Manager").
	require.True(t, q.Enqueue(types.ChannelTransaction{Kind: types.KindWrite, Bank: 1, Row: 3, ByteLen: 16}))

	cmd, did := q.opportunisticActivate(view)
	require.True(t, did)
	require.Equal(t, types.CmdActivate, cmd.Kind)
	require.Equal(t, uint32(1), cmd.Bank)
	require.Equal(t, uint32(3), cmd.Row)
}

func TestBankQueueActiveManagerSkipsBankNotMatchingSwitchMode(t *testing.T) {
	cfg := types.SchedulerConfig{
		Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4, ActiveManager: true,
		MaxConsecutiveReads: 4, MaxConsecutiveWrites: 4,
	}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)
	view.Observe(types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 2})
	view.Advance(1)

	// A row-hit read keeps the switch policy favoring reads, so a closed-
	// row write on another bank should not be pre-activated: opening it
	// would spend the bank's command slot on a direction the scheduler
	// is not about to issue from (the Switch-Operation-Mode budget).
	require.True(t, q.Enqueue(types.ChannelTransaction{Kind: types.KindRead, Bank: 0, Row: 2, ByteLen: 16}))
	require.True(t, q.Enqueue(types.ChannelTransaction{Kind: types.KindWrite, Bank: 1, Row: 3, ByteLen: 16}))

	_, did := q.opportunisticActivate(view)
	require.False(t, did)
}

func TestBankQueueServicesChosenBankAndTracksConsecutiveHits(t *testing.T) {
	cfg := types.SchedulerConfig{Kind: types.SchedulerBankQueue, PerBankQueueCapacity: 4}
	q := newBankQueue(cfg, 2)

	view := dram.NewView(bankQueueModuleConfig())
	view.Advance(0)
	view.Observe(types.DRAMCommand{Kind: types.CmdActivate, Bank: 0, Row: 1})
	view.Advance(1)

	txn := types.ChannelTransaction{Kind: types.KindRead, Bank: 0, Row: 1, StartCol: 0, ByteLen: 16}
	require.True(t, q.Enqueue(txn))

	dec := q.Clock(1, view)
	require.True(t, dec.HasCommand)
	require.Equal(t, types.CmdRead, dec.Command.Kind)
	require.Len(t, dec.Completed, 1)
	require.Equal(t, uint32(1), q.consecutiveHits[0])
}
