package scheduler

import (
	"gddrmc/errcode"
	"gddrmc/types"
)

// New builds the Scheduler variant cfg.Kind selects, wiring in whatever
// switch-mode or bank-selection policy that variant needs (spec.md §9
// "tagged-variant construction"; SPEC_FULL.md §11 "scheduler selector
// factory").
func New(cfg types.SchedulerConfig, banks uint32, closePage bool, seed int64) (Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case types.SchedulerFIFO:
		return NewFIFO(cfg).WithClosePage(closePage), nil
	case types.SchedulerSplitRWFIFO:
		return NewSplitRWFIFO(cfg, NewSwitchPolicy(cfg)).WithClosePage(closePage), nil
	case types.SchedulerBankQueue:
		order := cfg.BankCompareOrder
		if len(order) == 0 {
			order = []types.BankCompareKind{types.CompareOldestFirst}
		}
		selector := NewBankSelectionPolicy(order, banks, seed)
		return NewBankQueue(cfg, banks, selector, NewSwitchPolicy(cfg)).WithClosePage(closePage), nil
	default:
		return nil, errcode.New(errcode.InvalidConfig, "scheduler.New", "unknown scheduler kind")
	}
}
