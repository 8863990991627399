package mc

import (
	"gddrmc/bus"
	"gddrmc/corefault"
	"gddrmc/dram"
	"gddrmc/errcode"
	"gddrmc/scheduler"
	"gddrmc/splitter"
	"gddrmc/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// channelState is everything one DRAM channel needs: its module, the
// scheduler's read-only mirror of it, the channel scheduler itself, and
// the data-bearing transactions whose final command has issued but whose
// data has not yet crossed the pins (spec.md §4.1, §4.4, §4.5).
//
// inflight is a FIFO: the timing layer's data-bus-conflict check keeps
// burst windows from overlapping, so bursts complete in issue order and a
// pin event is matched against the oldest queued entry of its kind.
type channelState struct {
	module   *dram.Module
	view     *dram.View
	sched    scheduler.Scheduler
	inflight []types.ChannelTransaction
}

// Controller is the memory-controller orchestrator: it runs the
// per-cycle algorithm of spec.md §4.5 across every channel, the request
// buffer, the service queue, and the system-memory path.
type Controller struct {
	cfg      types.ControllerConfig
	split    splitter.Splitter
	split2   splitter.Splitter // second interleaving range, nil if unconfigured
	channels []channelState

	buf    *RequestBuffer // GPU-memory request pool (spec.md §3 "two independent pools")
	sysBuf *RequestBuffer // system-memory request pool
	svc    *ServiceQueue
	sysMem *SystemMemory
	rop    *ROPStats

	// pendingWrites holds WRITE_DATA requests still crossing the client
	// bus inbound, and buses tracks every client's bidirectional bus
	// occupancy (spec.md §4.5 steps 1-4, §6 "client bus protocol").
	pendingWrites []*pendingWriteTransmit
	buses         map[types.ClientSrc]*clientBus

	conn *bus.Connection
	log  *logrus.Entry

	sink  corefault.Sink
	runID uuid.UUID

	cycle uint64
}

// NewController wires every component per cfg (already validated).
func NewController(cfg types.ControllerConfig, conn *bus.Connection, sink corefault.Sink, runID uuid.UUID, log *logrus.Entry) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sp, err := splitter.New(cfg.Splitter)
	if err != nil {
		return nil, err
	}
	var sp2 splitter.Splitter
	if cfg.SecondSplitter != nil {
		sp2, err = splitter.New(*cfg.SecondSplitter)
		if err != nil {
			return nil, err
		}
	}

	c := &Controller{
		cfg:    cfg,
		split:  sp,
		split2: sp2,
		buf:    NewRequestBuffer(cfg.RequestBufferSize),
		sysBuf: NewRequestBuffer(cfg.SystemBufferSize),
		svc:    NewServiceQueue(cfg.ServiceQueueSize),
		sysMem: NewSystemMemory(cfg.SystemMemoryLatency, cfg.SystemBufferSize),
		buses:  make(map[types.ClientSrc]*clientBus),
		conn:   conn,
		log:    log,
		sink:   sink,
		runID:  runID,
	}
	if cfg.ROPCount > 0 {
		c.rop = NewROPStats(cfg.ROPCount, cfg.PerClientReserve)
	}

	for ch := uint32(0); ch < cfg.Channels; ch++ {
		mod := dram.NewModule(cfg.Module, sink, runID, "dram")
		view := dram.NewView(cfg.Module)
		sched, err := scheduler.New(cfg.Scheduler, cfg.Module.Banks, cfg.Module.ClosePage, int64(ch)+1)
		if err != nil {
			return nil, err
		}
		c.channels = append(c.channels, channelState{module: mod, view: view, sched: sched})
	}
	return c, nil
}

func (c *Controller) fault(code errcode.Code, cause string, detail map[string]any) {
	corefault.Raise(c.sink, c.runID, c.cycle, "controller", code, cause, detail)
}

// Submit admits one client request into the controller (spec.md §4.5
// step 1 "client ingress"). It is the programmatic equivalent of a
// client publishing a ClientMessage on its request topic.
//
// A WRITE_DATA request is not split and enqueued immediately: its
// payload must first cross the client bus, so it is held in
// types.ReqTransmitting for a bus-cycle countdown and only admitted
// once Clock's clockClientIngress observes that countdown reach zero
// (spec.md §4.5 step 1, §6 "declared bandwidth"). READ_REQ carries no
// payload of its own and is admitted immediately.
func (c *Controller) Submit(msg ClientMessage, cycle uint64) error {
	if msg.Txn == types.TxnPreloadData {
		return errcode.New(errcode.InvalidParams, "Controller.Submit", "use PreloadChannel for PRELOAD_DATA")
	}

	req := &types.MemoryRequest{
		Transaction: msg.Txn,
		Client:      msg.Src,
		Address:     msg.Address,
		ByteLen:     msg.ByteLen,
		WriteMask:   msg.WriteMask,
		ArrivalAt:   cycle,
		State:       types.ReqReady,
	}
	switch msg.Txn {
	case types.TxnWriteData:
		req.DataBuffer = append([]byte(nil), msg.Data...)
	case types.TxnReadReq:
		req.DataBuffer = make([]byte, req.ByteLen)
	}

	if msg.Txn == types.TxnWriteData && !msg.IsSystemMemory {
		req.State = types.ReqTransmitting
		c.pendingWrites = append(c.pendingWrites, &pendingWriteTransmit{
			req:       req,
			msg:       msg,
			submitAt:  cycle,
			remaining: transmitCycles(msg.ByteLen, c.cfg.ClientBusWordsPerCycle),
		})
		return nil
	}

	return c.admit(req, msg, cycle)
}

// admit performs the actual split-and-enqueue (or system-memory
// submission) once a request's client-bus transfer, if any, has
// completed.
func (c *Controller) admit(req *types.MemoryRequest, msg ClientMessage, cycle uint64) error {
	if msg.IsSystemMemory {
		return c.submitSystemMemory(req, msg.Src, cycle)
	}

	if c.rop != nil && !c.rop.CanAdmit(msg.Src.UnitID, uint32(c.buf.Len()), uint32(c.buf.Cap())) {
		return errcode.New(errcode.RequestBufferFull, "Controller.admit", "per-client reservation exhausted")
	}

	// A second interleaving range (spec.md §4.3) still lands in DRAM; it
	// only changes which splitter resolves the address, never the path.
	sp := c.split
	if c.split2 != nil && c.cfg.SecondRangeStart != 0 && msg.Address >= c.cfg.SecondRangeStart {
		sp = c.split2
	}

	ref, ok := c.buf.Alloc(req)
	if !ok {
		return errcode.New(errcode.RequestBufferFull, "Controller.admit", "request buffer full")
	}
	txns, err := sp.Split(req, ref)
	if err != nil {
		c.buf.Free(ref)
		return err
	}
	req.Outstanding = uint32(len(txns))
	req.State = types.ReqWaiting
	for _, t := range txns {
		if !c.channels[t.Channel].sched.Enqueue(t) {
			c.buf.Free(ref)
			return errcode.New(errcode.ChannelQueueFull, "Controller.admit", "channel scheduler queue full")
		}
	}
	if c.rop != nil {
		c.rop.OnSubmit(msg.Src.UnitID)
	}
	return nil
}

// submitSystemMemory admits req into the separate fixed-latency system-
// memory pool and path (spec.md §3 "two independent pools", §4.5
// "system memory path"), entirely bypassing DRAM channel scheduling.
func (c *Controller) submitSystemMemory(req *types.MemoryRequest, src types.ClientSrc, cycle uint64) error {
	req.IsSystemMemory = true
	req.Outstanding = 1
	req.State = types.ReqMemory

	ref, ok := c.sysBuf.Alloc(req)
	if !ok {
		return errcode.New(errcode.RequestBufferFull, "Controller.submitSystemMemory", "system memory request pool full")
	}
	if !c.sysMem.Submit(ref, cycle) {
		c.sysBuf.Free(ref)
		return errcode.New(errcode.ServiceQueueFull, "Controller.submitSystemMemory", "system memory path full")
	}
	if c.rop != nil {
		c.rop.OnSubmit(src.UnitID)
	}
	return nil
}

// PreloadChannel writes words directly into one channel's DRAM module
// with no timing effect (spec.md §6 "PRELOAD_DATA").
func (c *Controller) PreloadChannel(channel, bank, row, col uint32, words []uint32) error {
	if int(channel) >= len(c.channels) {
		return errcode.New(errcode.InvalidParams, "Controller.PreloadChannel", "channel out of range")
	}
	return c.channels[channel].module.Preload(bank, row, col, words)
}

// Clock runs one cycle of the memory-controller algorithm (spec.md
// §4.5). The caller is responsible for feeding client ingress via
// Submit before calling Clock for that cycle.
func (c *Controller) Clock(cycle uint64) {
	c.cycle = cycle

	c.clockClientIngress(cycle)

	for _, ref := range c.sysMem.Clock(cycle) {
		c.completeSystemMemory(ref)
	}

	for i := range c.channels {
		ch := &c.channels[i]
		ch.module.AdvancePassive(cycle)
		ch.view.Advance(cycle)

		dec := ch.sched.Clock(cycle, ch.view)
		if dec.HasCommand {
			ch.module.Issue(cycle, dec.Command)
			ch.view.Observe(dec.Command)
		}
		ch.inflight = append(ch.inflight, dec.Completed...)

		pin := ch.module.ResolveDataPins(cycle)
		c.handlePin(ch, pin)
	}

	c.clockClientEgress()
}

// handlePin matches this cycle's data-pin event, if any, against the
// oldest still-in-flight transaction on that channel (spec.md §4.5
// "read-burst merge"; see channelState.inflight for why FIFO order is
// safe here).
func (c *Controller) handlePin(ch *channelState, pin dram.PinEvent) {
	switch pin.Kind {
	case dram.PinReadData:
		txn, rest, ok := popInflight(ch.inflight, types.KindRead)
		if !ok {
			c.fault(errcode.StateMismatch, "read data pin with no in-flight read", map[string]any{"bank": pin.Bank})
			return
		}
		ch.inflight = rest
		c.completeRead(txn, pin.Burst)
	case dram.PinWriteConsumed:
		txn, rest, ok := popInflight(ch.inflight, types.KindWrite)
		if !ok {
			c.fault(errcode.StateMismatch, "write consumed pin with no in-flight write", map[string]any{"bank": pin.Bank})
			return
		}
		ch.inflight = rest
		if rw, isRW := ch.sched.(*scheduler.SplitRWFIFO); isRW {
			rw.NotifyWriteComplete(txn)
		}
		c.completeWrite(txn)
	}
}

// popInflight removes and returns the oldest queued transaction of kind
// from q, along with the remaining queue.
func popInflight(q []types.ChannelTransaction, kind types.TxnKind) (types.ChannelTransaction, []types.ChannelTransaction, bool) {
	for i, t := range q {
		if t.Kind == kind {
			rest := append(q[:i:i], q[i+1:]...)
			return t, rest, true
		}
	}
	return types.ChannelTransaction{}, q, false
}

// completeRead copies a resolved read burst into its parent request's
// assembly buffer (which txn.Data already aliases) and retires the
// request once every fragment has landed.
func (c *Controller) completeRead(txn types.ChannelTransaction, burst types.Burst) {
	req, ok := c.buf.Get(txn.Parent)
	if !ok {
		c.fault(errcode.StateMismatch, "read completion for unknown request", map[string]any{"ref": txn.Parent})
		return
	}
	raw := wordsToBytes(burst.Words)
	n := len(txn.Data)
	if n > len(raw) {
		n = len(raw)
	}
	copy(txn.Data, raw[:n])
	c.finishFragment(txn.Parent, req)
}

// completeWrite retires the write fragment; its bytes were already
// delivered to the bank by Module.ResolveDataPins.
func (c *Controller) completeWrite(txn types.ChannelTransaction) {
	req, ok := c.buf.Get(txn.Parent)
	if !ok {
		c.fault(errcode.StateMismatch, "write completion for unknown request", map[string]any{"ref": txn.Parent})
		return
	}
	c.finishFragment(txn.Parent, req)
}

func (c *Controller) finishFragment(ref types.RequestRef, req *types.MemoryRequest) {
	if req.Outstanding > 0 {
		req.Outstanding--
	}
	if req.Complete() {
		c.retireRequest(ref, req)
	}
}

// retireRequest moves a fully-serviced request into the service queue
// and frees its request-buffer slot (spec.md §3 "completes when
// outstanding reaches 0"). req.IsSystemMemory selects which of the two
// independent pools (spec.md §3) owns ref.
func (c *Controller) retireRequest(ref types.RequestRef, req *types.MemoryRequest) {
	item := ServiceItem{Ref: ref, Client: req.Client, IsWrite: req.Transaction == types.TxnWriteData}
	if req.Transaction == types.TxnReadReq {
		item.ReadData = req.DataBuffer
		req.ReadReply = true
	}
	if c.rop != nil {
		c.rop.OnComplete(req.Client.UnitID)
	}
	if req.IsSystemMemory {
		c.sysBuf.Free(ref)
	} else {
		c.buf.Free(ref)
	}
	if !c.svc.Enqueue(item) {
		c.fault(errcode.ServiceQueueFull, "service queue full on request retire", map[string]any{"client": req.Client})
	}
}

// completeSystemMemory retires a request that took the fixed-latency
// system-memory path.
func (c *Controller) completeSystemMemory(ref types.RequestRef) {
	req, ok := c.sysBuf.Get(ref)
	if !ok {
		c.fault(errcode.StateMismatch, "system memory completion for unknown request", map[string]any{"ref": ref})
		return
	}
	req.Outstanding = 0
	c.retireRequest(ref, req)
}

// aggregateAccept reports the narrowest SchedulerAccept across every
// channel, translated into the client-visible ClientAccept token
// (spec.md §6 "client STATE broadcast").
func (c *Controller) aggregateAccept() types.ClientAccept {
	readOK, writeOK := true, true
	for _, ch := range c.channels {
		switch ch.sched.Accept() {
		case types.AcceptNone:
			readOK, writeOK = false, false
		case types.AcceptReadOnly:
			writeOK = false
		case types.AcceptWriteOnly:
			readOK = false
		}
	}
	switch {
	case readOK && writeOK:
		return types.ClientAcceptBoth
	case readOK:
		return types.ClientAcceptRead
	case writeOK:
		return types.ClientAcceptWrite
	default:
		return types.ClientAcceptNone
	}
}

// BroadcastState publishes the current aggregate accept token to every
// client in clients (spec.md §6). The CLI driver owns the client
// registry; Controller only knows how to compute the token.
func (c *Controller) BroadcastState(clients []types.ClientSrc) {
	accept := c.aggregateAccept()
	for _, src := range clients {
		PublishAccept(c.conn, src, accept)
	}
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		out[i*4+0] = byte(w)
		out[i*4+1] = byte(w >> 8)
		out[i*4+2] = byte(w >> 16)
		out[i*4+3] = byte(w >> 24)
	}
	return out
}
