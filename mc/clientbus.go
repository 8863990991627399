package mc

import (
	"gddrmc/bus"
	"gddrmc/types"
)

// ClientMessage is the wire format a client publishes on its request
// topic: READ_REQ, WRITE_DATA, or PRELOAD_DATA (spec.md §6).
type ClientMessage struct {
	Src       types.ClientSrc
	Txn       types.RequestTxn
	Address   uint64
	ByteLen   uint32
	Data      []byte
	WriteMask []byte

	// IsSystemMemory routes this request onto the separate fixed-latency
	// system-memory bus (spec.md §3 "two independent pools") instead of
	// the DRAM channel schedulers. It is independent of Address — unlike
	// the second interleaving range, which still lands in DRAM.
	IsSystemMemory bool

	// PRELOAD_DATA only: bypasses the request buffer/scheduler entirely.
	PreloadBank uint32
	PreloadRow  uint32
	PreloadCol  uint32
}

// ClientReply carries a completed read's data back to its client.
type ClientReply struct {
	Src  types.ClientSrc
	Data []byte
}

// RequestTopic is where a client publishes ClientMessages.
func RequestTopic(src types.ClientSrc) bus.Topic {
	return bus.T("mc", "client", src.UnitID, src.SubID, "req")
}

// ReplyTopic is where the controller publishes ClientReplys.
func ReplyTopic(src types.ClientSrc) bus.Topic {
	return bus.T("mc", "client", src.UnitID, src.SubID, "reply")
}

// StateTopic is where the controller broadcasts the per-cycle
// types.ClientAccept token every client bus carries (spec.md §6
// "client STATE broadcast").
func StateTopic(src types.ClientSrc) bus.Topic {
	return bus.T("mc", "client", src.UnitID, src.SubID, "state")
}

// PublishAccept broadcasts this cycle's accept token to src, retained
// so a client that polls rather than subscribes still sees it.
func PublishAccept(conn *bus.Connection, src types.ClientSrc, accept types.ClientAccept) {
	conn.Publish(conn.NewMessage(StateTopic(src), accept, true))
}

// PublishReply delivers a completed read's data to its client.
func PublishReply(conn *bus.Connection, src types.ClientSrc, data []byte) {
	conn.Publish(conn.NewMessage(ReplyTopic(src), ClientReply{Src: src, Data: data}, false))
}
