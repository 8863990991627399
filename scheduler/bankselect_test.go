package scheduler

import (
	"testing"

	"gddrmc/types"

	"github.com/stretchr/testify/require"
)

func TestBankSelectionOldestFirst(t *testing.T) {
	p := NewBankSelectionPolicy([]types.BankCompareKind{types.CompareOldestFirst}, 4, 1)
	cands := []BankCandidate{
		{Bank: 0, Txn: types.ChannelTransaction{EnqueueAt: 5}},
		{Bank: 1, Txn: types.ChannelTransaction{EnqueueAt: 2}},
		{Bank: 2, Txn: types.ChannelTransaction{EnqueueAt: 9}},
	}
	chosen, ok := p.Select(cands)
	require.True(t, ok)
	require.Equal(t, uint32(1), chosen.Bank)
}

func TestBankSelectionMoreConsecutiveHitsFirst(t *testing.T) {
	p := NewBankSelectionPolicy([]types.BankCompareKind{types.CompareMoreConsecutiveHitsFirst}, 4, 1)
	cands := []BankCandidate{
		{Bank: 0, ConsecutiveHits: 1},
		{Bank: 1, ConsecutiveHits: 7},
	}
	chosen, ok := p.Select(cands)
	require.True(t, ok)
	require.Equal(t, uint32(1), chosen.Bank)
}

func TestBankSelectionFallsThroughTiedComparators(t *testing.T) {
	order := []types.BankCompareKind{
		types.CompareMoreConsecutiveHitsFirst,
		types.CompareOldestFirst,
	}
	p := NewBankSelectionPolicy(order, 4, 1)
	cands := []BankCandidate{
		{Bank: 0, ConsecutiveHits: 3, Txn: types.ChannelTransaction{EnqueueAt: 10}},
		{Bank: 1, ConsecutiveHits: 3, Txn: types.ChannelTransaction{EnqueueAt: 1}},
	}
	chosen, ok := p.Select(cands)
	require.True(t, ok)
	require.Equal(t, uint32(1), chosen.Bank)
}

func TestRoundRobinDistanceWraps(t *testing.T) {
	require.Equal(t, uint32(1), distance(3, 0, 4))
	require.Equal(t, uint32(4), distance(0, 0, 4))
	require.Equal(t, uint32(2), distance(2, 0, 4))
}

func TestSelectEmptyCandidates(t *testing.T) {
	p := NewBankSelectionPolicy([]types.BankCompareKind{types.CompareOldestFirst}, 4, 1)
	_, ok := p.Select(nil)
	require.False(t, ok)
}
