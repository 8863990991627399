// Package mc implements the memory-controller orchestrator of
// spec.md §4.5: the request buffer, service queue, per-cycle
// controller algorithm, client-bus protocol, and system-memory path. It
// is grounded on the teacher's Connection/Subscription ownership model
// (bus package) for the client-port protocol, and on the teacher's
// register/protocol driver style for the request-buffer arena.
package mc

import "gddrmc/types"

// slot is one request-buffer arena cell. generation increments on every
// reuse so a stale types.RequestRef captured before a slot was freed and
// reallocated can never be mistaken for the new occupant (spec.md §9
// "Design Notes — back-pointer").
type slot struct {
	req        *types.MemoryRequest
	generation uint32
	used       bool
}

// RequestBuffer is the arena + free-list backing every in-flight
// MemoryRequest (spec.md §3 "Request Buffer").
type RequestBuffer struct {
	slots []slot
	free  []uint32
}

// NewRequestBuffer allocates a fixed-capacity arena.
func NewRequestBuffer(capacity uint32) *RequestBuffer {
	free := make([]uint32, capacity)
	for i := range free {
		free[i] = uint32(i)
	}
	return &RequestBuffer{slots: make([]slot, capacity), free: free}
}

// Alloc admits req into the arena, returning a generation-checked
// reference, or ok=false if the buffer is full (spec.md §7 "request
// buffer full").
func (b *RequestBuffer) Alloc(req *types.MemoryRequest) (ref types.RequestRef, ok bool) {
	if len(b.free) == 0 {
		return types.RequestRef{}, false
	}
	idx := b.free[len(b.free)-1]
	b.free = b.free[:len(b.free)-1]
	s := &b.slots[idx]
	s.used = true
	s.req = req
	s.generation++
	return types.RequestRef{Slot: idx + 1, Generation: s.generation}, true
}

// Get dereferences ref, returning ok=false if it is stale (the slot was
// freed and possibly reused since ref was captured).
func (b *RequestBuffer) Get(ref types.RequestRef) (*types.MemoryRequest, bool) {
	if ref.IsZero() || ref.Slot == 0 || int(ref.Slot-1) >= len(b.slots) {
		return nil, false
	}
	s := &b.slots[ref.Slot-1]
	if !s.used || s.generation != ref.Generation {
		return nil, false
	}
	return s.req, true
}

// Free releases ref's slot back to the free list. A stale or already-
// freed ref is a silent no-op.
func (b *RequestBuffer) Free(ref types.RequestRef) {
	if ref.IsZero() || ref.Slot == 0 || int(ref.Slot-1) >= len(b.slots) {
		return
	}
	idx := ref.Slot - 1
	s := &b.slots[idx]
	if !s.used || s.generation != ref.Generation {
		return
	}
	s.used = false
	s.req = nil
	b.free = append(b.free, idx)
}

// Len is the number of requests currently occupying the arena.
func (b *RequestBuffer) Len() int { return len(b.slots) - len(b.free) }

// Cap is the arena's fixed capacity.
func (b *RequestBuffer) Cap() int { return len(b.slots) }
