package scheduler

import (
	"testing"

	"gddrmc/dram"
	"gddrmc/types"

	"github.com/stretchr/testify/require"
)

func rwCfg(queueCap, dedicated uint32) types.SchedulerConfig {
	return types.SchedulerConfig{
		Kind:                 types.SchedulerSplitRWFIFO,
		QueueCapacity:        queueCap,
		DedicatedReads:       dedicated,
		MaxConsecutiveReads:  2,
		MaxConsecutiveWrites: 2,
	}
}

func TestSplitRWFIFODedicatedReadsClampedToCapacity(t *testing.T) {
	cfg := rwCfg(4, 10) // misconfigured: dedicated > capacity
	s := NewSplitRWFIFO(cfg, NewSwitchPolicy(cfg))
	require.Equal(t, uint32(4), s.readCap)
	require.Equal(t, uint32(0), s.writeCap)
}

func TestSplitRWFIFOQueuesIndependently(t *testing.T) {
	cfg := rwCfg(2, 1)
	s := NewSplitRWFIFO(cfg, NewSwitchPolicy(cfg))
	require.True(t, s.Enqueue(types.ChannelTransaction{Kind: types.KindRead}))
	require.True(t, s.Enqueue(types.ChannelTransaction{Kind: types.KindRead}))
	require.False(t, s.Enqueue(types.ChannelTransaction{Kind: types.KindRead}), "read queue at capacity")
	require.True(t, s.Enqueue(types.ChannelTransaction{Kind: types.KindWrite}))
	require.False(t, s.Enqueue(types.ChannelTransaction{Kind: types.KindWrite}), "write queue at capacity")
	require.Equal(t, 3, s.Depth())
}

func TestSplitRWFIFOBlocksReadOverlappingInFlightWrite(t *testing.T) {
	cfg := rwCfg(4, 2)
	s := NewSplitRWFIFO(cfg, NewSwitchPolicy(cfg))

	write := types.ChannelTransaction{Kind: types.KindWrite, Bank: 0, Row: 1, StartCol: 0, ByteLen: 16}
	read := types.ChannelTransaction{Kind: types.KindRead, Bank: 0, Row: 1, StartCol: 0, ByteLen: 16}

	s.dep.MarkIssued(write)
	require.True(t, s.dep.Blocks(read), "read overlapping an in-flight write must block")

	s.dep.MarkComplete(write)
	require.False(t, s.dep.Blocks(read), "read must unblock once the write completes")
}

func TestSplitRWFIFODependencyTrackerIgnoresDisjointRanges(t *testing.T) {
	var dep DependencyTracker
	write := types.ChannelTransaction{Kind: types.KindWrite, Bank: 0, Row: 1, StartCol: 0, ByteLen: 16}
	read := types.ChannelTransaction{Kind: types.KindRead, Bank: 0, Row: 1, StartCol: 4, ByteLen: 16}
	dep.MarkIssued(write)
	require.False(t, dep.Blocks(read), "non-overlapping column ranges must not block")
}

func TestSplitRWFIFOClockFavorsModeThenFallsBack(t *testing.T) {
	cfg := rwCfg(4, 2)
	s := NewSplitRWFIFO(cfg, NewSwitchPolicy(cfg))
	cfgMod := types.ModuleConfig{Banks: 1, Rows: 4, Cols: 8, BurstLength: 4, BurstBytesPerCycle: 4}
	view := dram.NewView(cfgMod)
	view.Advance(0)

	write := types.ChannelTransaction{Kind: types.KindWrite, Bank: 0, Row: 0, StartCol: 0, ByteLen: 16, Data: make([]byte, 16)}
	require.True(t, s.Enqueue(write))

	// No reads queued: even though TwoCounters starts in OpRead mode, the
	// scheduler must fall back to the write queue.
	dec := s.Clock(0, view)
	require.True(t, dec.HasCommand)
	require.Equal(t, types.CmdActivate, dec.Command.Kind)
}

func TestTwoCountersSwitchesAfterBudgetExhausted(t *testing.T) {
	p := NewTwoCounters(1, 1)
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
	p.RecordIssue(OpRead)
	// read budget of 1 now exhausted; writes are available so it flips.
	require.Equal(t, OpWrite, p.Advance(true, true, false, false))
}

func TestTwoCountersSticksWhileQueueNonEmptyAndUnderBudget(t *testing.T) {
	p := NewTwoCounters(5, 5)
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
	p.RecordIssue(OpRead)
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
}

func TestTwoCountersIgnoresRowHitInformation(t *testing.T) {
	// TwoCounters switches purely on existence and budget; row-hit info
	// must have no effect either way (spec.md §4.6 "TwoCounters").
	p := NewTwoCounters(1, 1)
	require.Equal(t, OpRead, p.Advance(true, true, true, true))
	p.RecordIssue(OpRead)
	require.Equal(t, OpWrite, p.Advance(true, true, true, true))
}

func TestLoadsOverStoresPrefersReadsUntilStarvationLimit(t *testing.T) {
	p := NewLoadsOverStores(2)
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
	p.RecordIssue(OpRead)
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
	p.RecordIssue(OpRead)
	require.Equal(t, OpWrite, p.Advance(true, true, false, false))
}

func TestLoadsOverStoresFallsBackWhenReadsEmpty(t *testing.T) {
	p := NewLoadsOverStores(2)
	require.Equal(t, OpWrite, p.Advance(false, true, false, false))
}

func TestLoadsOverStoresSticksWithWriteRowHitDespitePendingRead(t *testing.T) {
	p := NewLoadsOverStores(1)
	require.Equal(t, OpWrite, p.Advance(false, true, false, false))
	p.RecordIssue(OpWrite)
	// A read now exists, but the pending write is a row hit: per spec.md
	// §4.6 "LoadsOverStores" the in-progress write run is not cut short.
	require.Equal(t, OpWrite, p.Advance(true, true, false, true))
}

func TestLoadsOverStoresSwitchesBackWhenPendingWriteIsNotRowHit(t *testing.T) {
	p := NewLoadsOverStores(1)
	require.Equal(t, OpWrite, p.Advance(false, true, false, false))
	p.RecordIssue(OpWrite)
	// A read exists and the pending write is not a row hit: switch back.
	require.Equal(t, OpRead, p.Advance(true, true, false, false))
}
