package splitter

import (
	"gddrmc/errcode"
	"gddrmc/types"
)

// New builds the Splitter variant cfg.Kind selects. Construction is a
// tagged switch, not virtual dispatch (spec.md §9 "Design Notes —
// tagged-variant construction"): callers never need a registry, and the
// set of variants is closed.
func New(cfg types.SplitterConfig) (Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case types.SplitterByteInterleaved:
		return NewByteInterleaved(cfg), nil
	case types.SplitterBitmask:
		return NewBitmask(cfg), nil
	default:
		return nil, errcode.New(errcode.InvalidConfig, "splitter.New", "unknown splitter kind")
	}
}
