package scheduler

import "gddrmc/types"

// OpMode is which direction the split read/write FIFO scheduler is
// currently favoring (spec.md §4.6).
type OpMode uint8

const (
	OpRead OpMode = iota
	OpWrite
)

// SwitchPolicy decides, once per cycle, which direction a split R/W
// FIFO (or per-bank-queue Active Manager) should favor (spec.md §4.6
// "update(reads_exist, writes_exist, read_is_row_hit, write_is_row_hit)").
type SwitchPolicy interface {
	Advance(readsExist, writesExist, readRowHit, writeRowHit bool) OpMode
	RecordIssue(mode OpMode)
}

// TwoCounters sticks with a direction until either its queue drains or
// its consecutive-op budget is exhausted, then flips (spec.md §4.6
// "TwoCounters").
type TwoCounters struct {
	maxReads, maxWrites uint32
	mode                OpMode
	consecutive         uint32
}

func NewTwoCounters(maxReads, maxWrites uint32) *TwoCounters {
	return &TwoCounters{maxReads: maxReads, maxWrites: maxWrites, mode: OpRead}
}

// Advance ignores row-hit info: TwoCounters switches purely on candidate
// availability and the consecutive-op budget (spec.md §4.6 "TwoCounters").
func (s *TwoCounters) Advance(readsExist, writesExist, _, _ bool) OpMode {
	switch s.mode {
	case OpRead:
		if (!readsExist || s.consecutive >= s.maxReads) && writesExist {
			s.mode, s.consecutive = OpWrite, 0
		}
	case OpWrite:
		if (!writesExist || s.consecutive >= s.maxWrites) && readsExist {
			s.mode, s.consecutive = OpRead, 0
		}
	}
	return s.mode
}

func (s *TwoCounters) RecordIssue(mode OpMode) {
	if mode == s.mode {
		s.consecutive++
	}
}

// LoadsOverStores defaults to reads, switching to writes only once no
// reads exist or reads have run long enough to risk starving writers; it
// switches back to reads as soon as a read exists and the pending write
// is not a row hit, so an in-progress row-hit write run is not cut short
// (spec.md §4.6 "LoadsOverStores").
type LoadsOverStores struct {
	writeStarvationLimit uint32
	mode                 OpMode
	consecutiveReads     uint32
}

func NewLoadsOverStores(writeStarvationLimit uint32) *LoadsOverStores {
	return &LoadsOverStores{writeStarvationLimit: writeStarvationLimit, mode: OpRead}
}

func (s *LoadsOverStores) Advance(readsExist, writesExist, _, writeRowHit bool) OpMode {
	switch s.mode {
	case OpRead:
		starved := !readsExist || s.consecutiveReads >= s.writeStarvationLimit
		if starved && writesExist {
			s.mode = OpWrite
		}
	case OpWrite:
		if !writesExist || (readsExist && !writeRowHit) {
			s.mode, s.consecutiveReads = OpRead, 0
		}
	}
	return s.mode
}

func (s *LoadsOverStores) RecordIssue(mode OpMode) {
	if mode == OpRead {
		s.consecutiveReads++
	} else {
		s.consecutiveReads = 0
	}
}

// NewSwitchPolicy builds the configured variant (spec.md §9 "tagged-
// variant construction").
func NewSwitchPolicy(cfg types.SchedulerConfig) SwitchPolicy {
	switch cfg.SwitchMode {
	case types.SwitchModeLoadsOverStores:
		limit := cfg.MaxConsecutiveReads
		if limit == 0 {
			limit = 1
		}
		return NewLoadsOverStores(limit)
	default:
		return NewTwoCounters(cfg.MaxConsecutiveReads, cfg.MaxConsecutiveWrites)
	}
}
