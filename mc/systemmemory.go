package mc

import "gddrmc/types"

// sysMemEntry is one request in flight on the fixed-latency system-
// memory path.
type sysMemEntry struct {
	ref        types.RequestRef
	completeAt uint64
}

// SystemMemory models the fixed-latency path a request flagged
// IsSystemMemory takes instead of the DRAM channel scheduler (spec.md
// §4.5 "system memory path"):
// requests complete exactly SystemMemoryLatency cycles after admission,
// independent of DRAM bank timing.
type SystemMemory struct {
	latency  uint32
	capacity uint32
	pending  []sysMemEntry
}

func NewSystemMemory(latency, capacity uint32) *SystemMemory {
	return &SystemMemory{latency: latency, capacity: capacity}
}

// Submit admits ref, or reports false if the path is at capacity.
func (s *SystemMemory) Submit(ref types.RequestRef, cycle uint64) bool {
	if uint32(len(s.pending)) >= s.capacity {
		return false
	}
	s.pending = append(s.pending, sysMemEntry{ref: ref, completeAt: cycle + uint64(s.latency)})
	return true
}

// Clock returns every request whose fixed latency elapses this cycle.
func (s *SystemMemory) Clock(cycle uint64) []types.RequestRef {
	var done []types.RequestRef
	kept := s.pending[:0]
	for _, e := range s.pending {
		if e.completeAt == cycle {
			done = append(done, e.ref)
		} else {
			kept = append(kept, e)
		}
	}
	s.pending = kept
	return done
}

func (s *SystemMemory) Len() int { return len(s.pending) }
