package scheduler

import (
	"math/rand"

	"gddrmc/types"
)

// BankCandidate is one bank's head transaction, as seen by the
// bank-selection policy (spec.md §4.7).
type BankCandidate struct {
	Bank             uint32
	Txn              types.ChannelTransaction
	RowHit           bool
	ConsecutiveHits  uint32
	PendingRequests  uint32 // transactions queued behind Txn on this bank
	LastServiceCycle uint64
}

// comparator reports whether a should be preferred over b. It returns
// (preferred, decided) — decided is false on a tie, so the policy can
// fall through to the next comparator in its order.
type comparator func(a, b BankCandidate) (preferred, decided bool)

// BankSelectionPolicy applies an ordered chain of comparators
// (spec.md §4.7 "composable comparators"): the first comparator that
// breaks a tie decides; all nine exist purely so a config can compose
// whichever priority order a channel scheduler needs.
type BankSelectionPolicy struct {
	order []types.BankCompareKind
	rng   *rand.Rand
	last  uint32
	banks uint32
}

// NewBankSelectionPolicy builds a policy from a validated comparator
// order. seed makes CompareRandom reproducible across runs.
func NewBankSelectionPolicy(order []types.BankCompareKind, banks uint32, seed int64) *BankSelectionPolicy {
	return &BankSelectionPolicy{order: order, rng: rand.New(rand.NewSource(seed)), banks: banks}
}

// Select returns the preferred candidate, or false if candidates is
// empty.
func (p *BankSelectionPolicy) Select(candidates []BankCandidate) (BankCandidate, bool) {
	if len(candidates) == 0 {
		return BankCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if p.prefer(c, best) {
			best = c
		}
	}
	p.last = best.Bank
	return best, true
}

func (p *BankSelectionPolicy) prefer(a, b BankCandidate) bool {
	for _, kind := range p.order {
		cmp := p.comparatorFor(kind)
		if pref, decided := cmp(a, b); decided {
			return pref
		}
	}
	return false
}

func (p *BankSelectionPolicy) comparatorFor(kind types.BankCompareKind) comparator {
	switch kind {
	case types.CompareRandom:
		return func(a, b BankCandidate) (bool, bool) { return p.rng.Intn(2) == 0, true }
	case types.CompareRoundRobin:
		return func(a, b BankCandidate) (bool, bool) {
			da := distance(p.last, a.Bank, p.banks)
			db := distance(p.last, b.Bank, p.banks)
			if da == db {
				return false, false
			}
			return da < db, true
		}
	case types.CompareOldestFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.Txn.EnqueueAt == b.Txn.EnqueueAt {
				return false, false
			}
			return a.Txn.EnqueueAt < b.Txn.EnqueueAt, true
		}
	case types.CompareYoungestFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.Txn.EnqueueAt == b.Txn.EnqueueAt {
				return false, false
			}
			return a.Txn.EnqueueAt > b.Txn.EnqueueAt, true
		}
	case types.CompareMoreConsecutiveHitsFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.ConsecutiveHits == b.ConsecutiveHits {
				return false, false
			}
			return a.ConsecutiveHits > b.ConsecutiveHits, true
		}
	case types.CompareLessConsecutiveHitsFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.ConsecutiveHits == b.ConsecutiveHits {
				return false, false
			}
			return a.ConsecutiveHits < b.ConsecutiveHits, true
		}
	case types.CompareMorePendingRequestsFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.PendingRequests == b.PendingRequests {
				return false, false
			}
			return a.PendingRequests > b.PendingRequests, true
		}
	case types.CompareLessPendingRequestsFirst:
		return func(a, b BankCandidate) (bool, bool) {
			if a.PendingRequests == b.PendingRequests {
				return false, false
			}
			return a.PendingRequests < b.PendingRequests, true
		}
	case types.CompareZeroPendingFirst:
		return func(a, b BankCandidate) (bool, bool) {
			az, bz := a.PendingRequests == 0, b.PendingRequests == 0
			if az == bz {
				return false, false
			}
			return az, true
		}
	default:
		return func(a, b BankCandidate) (bool, bool) { return false, false }
	}
}

// distance is how many steps a round-robin pointer sitting at from must
// advance to reach to, in [1, count].
func distance(from, to, count uint32) uint32 {
	if count == 0 {
		return 0
	}
	d := (int64(to) - int64(from) - 1) % int64(count)
	if d < 0 {
		d += int64(count)
	}
	return uint32(d) + 1
}
