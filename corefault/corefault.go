// Package corefault defines the dependency-injected fault-reporting
// boundary used in place of the original's module-level panic callback
// (spec.md §9 "Design Notes — global DRAM-module instance").
package corefault

import (
	"fmt"

	"gddrmc/errcode"

	"github.com/google/uuid"
)

// Fault is a single fatal condition raised by any CORE component. It
// carries enough local state for a core dump without any component
// holding a reference to another's internals.
type Fault struct {
	RunID     uuid.UUID
	Cycle     uint64
	Component string
	Code      errcode.Code
	Cause     string
	Detail    map[string]any
}

func (f Fault) Error() string {
	return fmt.Sprintf("cycle %d: %s: %s: %s", f.Cycle, f.Component, f.Code, f.Cause)
}

// Sink receives every fatal Fault before the raising component panics.
// Tests inject a recording Sink; the CLI driver also wires a Recorder.
type Sink interface {
	Fault(Fault)
}

// NopSink discards faults. Useful as a zero-value default so components
// never need a nil check.
type NopSink struct{}

func (NopSink) Fault(Fault) {}

// Recorder is a Sink that keeps every fault it has seen, for tests that
// assert a specific cycle/component/code was raised.
type Recorder struct {
	Faults []Fault
}

func (r *Recorder) Fault(f Fault) { r.Faults = append(r.Faults, f) }

func (r *Recorder) Last() (Fault, bool) {
	if len(r.Faults) == 0 {
		return Fault{}, false
	}
	return r.Faults[len(r.Faults)-1], true
}

// Raise builds a Fault, reports it to sink, and panics with its message.
// Every fatal condition in the CORE goes through this single choke
// point so the error-handling design in spec.md §7 is enforced uniformly.
func Raise(sink Sink, runID uuid.UUID, cycle uint64, component string, code errcode.Code, cause string, detail map[string]any) {
	if sink == nil {
		sink = NopSink{}
	}
	f := Fault{RunID: runID, Cycle: cycle, Component: component, Code: code, Cause: cause, Detail: detail}
	sink.Fault(f)
	panic(f.Error())
}
