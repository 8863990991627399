package mc

import (
	"gddrmc/errcode"
	"gddrmc/types"
	"gddrmc/x/mathx"
)

// transmitCycles is how many cycles a payload of byteLen bytes takes to
// cross a client bus declared at wordsPerCycle words/cycle (spec.md §6
// "declared bandwidth (words per cycle)"). A zero-length payload (a
// write acknowledgement carries no data of its own) still occupies the
// bus for one cycle; the bus protocol has no zero-cycle transfer.
func transmitCycles(byteLen, wordsPerCycle uint32) uint32 {
	if wordsPerCycle == 0 {
		wordsPerCycle = 1
	}
	cycles := mathx.CeilDiv(mathx.CeilDiv(byteLen, 4), wordsPerCycle)
	if cycles == 0 {
		cycles = 1
	}
	return cycles
}

// clientBus tracks one client's bidirectional bus occupancy: the
// countdown remaining on whatever is currently crossing it, and whether
// it was reserved last cycle for the service queue's head item (spec.md
// §4.5 steps 2-4 "reserve the originating-client bus ... serve it once
// the bus is free and was reserved last cycle").
type clientBus struct {
	remaining uint32
	reserved  bool
	item      *ServiceItem
}

func (b *clientBus) busy() bool { return b.remaining > 0 }

// busFor returns (creating if necessary) the bus-occupancy state for
// client.
func (c *Controller) busFor(client types.ClientSrc) *clientBus {
	b, ok := c.buses[client]
	if !ok {
		b = &clientBus{}
		c.buses[client] = b
	}
	return b
}

// pendingWriteTransmit is a WRITE_DATA request held in the
// types.ReqTransmitting state while its payload crosses the client bus,
// before it is split into channel transactions and admitted into the
// scheduler (spec.md §4.5 step 1 "mark the write as transmitting with a
// bus-cycle countdown equal to its payload transmission time").
type pendingWriteTransmit struct {
	req       *types.MemoryRequest
	msg       ClientMessage
	submitAt  uint64
	remaining uint32
}

// clockClientIngress advances every write still crossing its client bus
// on the way in, admitting it once the transfer completes.
func (c *Controller) clockClientIngress(cycle uint64) {
	if len(c.pendingWrites) == 0 {
		return
	}
	still := c.pendingWrites[:0]
	for _, p := range c.pendingWrites {
		p.remaining--
		if p.remaining > 0 {
			still = append(still, p)
			continue
		}
		p.req.State = types.ReqWaiting
		if err := c.admit(p.req, p.msg, p.submitAt); err != nil {
			c.fault(errcode.Of(err), "write admission failed once bus transmission completed", map[string]any{"client": p.msg.Src})
		}
	}
	c.pendingWrites = still
}

// clockClientEgress runs the client-bus half of the service queue
// protocol (spec.md §4.5 steps 2-4): begin transmitting the head item
// once its client's bus is free and was reserved last cycle, advance
// every transmission in flight and deliver on completion, then reserve
// the (possibly new) head item's bus if it will be free next cycle.
func (c *Controller) clockClientEgress() {
	if item, ok := c.svc.Peek(); ok {
		b := c.busFor(item.Client)
		if !b.busy() && b.reserved {
			c.svc.Dequeue()
			cp := item
			b.remaining = transmitCycles(c.payloadBytes(item), c.cfg.ClientBusWordsPerCycle)
			b.item = &cp
			b.reserved = false
		}
	}

	for _, b := range c.buses {
		if b.item == nil {
			continue
		}
		b.remaining--
		if b.remaining == 0 {
			c.deliver(*b.item)
			b.item = nil
		}
	}

	if item, ok := c.svc.Peek(); ok {
		b := c.busFor(item.Client)
		if !b.busy() {
			b.reserved = true
		}
	}
}

// payloadBytes is how much data item's bus transmission carries: a
// read reply carries its data; a write acknowledgement carries none.
func (c *Controller) payloadBytes(item ServiceItem) uint32 {
	if item.IsWrite {
		return 0
	}
	return uint32(len(item.ReadData))
}

// deliver publishes item's reply or acknowledgement once its bus
// transmission has finished.
func (c *Controller) deliver(item ServiceItem) {
	if item.IsWrite {
		PublishAccept(c.conn, item.Client, types.ClientAcceptWrite)
		return
	}
	PublishReply(c.conn, item.Client, item.ReadData)
}
