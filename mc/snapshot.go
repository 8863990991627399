package mc

import (
	"fmt"

	"gddrmc/dram"
)

// Snapshot is the controller-wide core-dump format (spec.md §6
// "snapshot on fatal fault"): one dram.Snapshot per channel, plus enough
// queue-depth accounting to diagnose a stuck run without needing the
// full request buffer contents.
type Snapshot struct {
	Cycle         uint64
	Channels      []dram.Snapshot
	RequestsInUse int
	ServiceDepth  int
	SystemMemory  int
}

// Save captures every channel's DRAM state and the controller's queue
// depths as of the last Clock call.
func (c *Controller) Save() Snapshot {
	s := Snapshot{
		Cycle:         c.cycle,
		Channels:      make([]dram.Snapshot, len(c.channels)),
		RequestsInUse: c.buf.Len(),
		ServiceDepth:  c.svc.Len(),
		SystemMemory:  c.sysMem.Len(),
	}
	for i, ch := range c.channels {
		s.Channels[i] = ch.module.Save()
	}
	return s
}

// Restore loads a prior Snapshot's DRAM contents back into every
// channel. Queue state (in-flight requests, scheduler queues) is not
// restored: a snapshot is a storage-layer diagnostic, not a full
// deterministic-replay checkpoint. The system-memory path carries no
// bank-like storage of its own (SystemMemory is a pure delay line over
// data already held in the request pool), so there is no separate
// byte-for-byte system-memory image to round-trip here.
func (c *Controller) Restore(s Snapshot) error {
	if len(s.Channels) != len(c.channels) {
		return fmt.Errorf("snapshot has %d channels, controller has %d", len(s.Channels), len(c.channels))
	}
	for i, chSnap := range s.Channels {
		if err := c.channels[i].module.Restore(chSnap); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return nil
}
