package types

import "gddrmc/x/mathx"

// TxnKind distinguishes a read from a write at both the channel-transaction
// and memory-request level.
type TxnKind uint8

const (
	KindRead TxnKind = iota
	KindWrite
)

// RequestTxn is the client-visible transaction kind (spec.md §3).
type RequestTxn uint8

const (
	TxnReadReq RequestTxn = iota
	TxnWriteData
	TxnPreloadData
)

// RequestState is the memory request's lifecycle state (spec.md §3).
type RequestState uint8

const (
	ReqReady RequestState = iota
	ReqWaiting
	ReqMemory
	ReqTransmitting
)

func (s RequestState) String() string {
	switch s {
	case ReqReady:
		return "Ready"
	case ReqWaiting:
		return "Waiting"
	case ReqMemory:
		return "Memory"
	case ReqTransmitting:
		return "Transmitting"
	default:
		return "Unknown"
	}
}

// ClientSrc identifies the client-bus endpoint that issued a request
// (spec.md §6 "src=(unit_id, sub_id)").
type ClientSrc struct {
	UnitID uint32
	SubID  uint32
}

// RequestRef is a stable, generation-checked handle into the request
// buffer arena (spec.md §9 "Design Notes — back-pointer").
type RequestRef struct {
	Slot       uint32
	Generation uint32
}

// IsZero reports the zero-value (invalid) reference.
func (r RequestRef) IsZero() bool { return r.Slot == 0 && r.Generation == 0 }

// ChannelTransaction is an atomic DRAM-address-range unit confined to a
// single (channel, bank, row) (spec.md §3).
type ChannelTransaction struct {
	Kind      TxnKind
	Channel   uint32
	Bank      uint32
	Row       uint32
	StartCol  uint32
	ByteLen   uint32
	Data      []byte // borrowed view into the parent request's DataBuffer
	ByteMask  []byte // optional, write only; nil means "all bytes enabled"
	Parent    RequestRef
	EnqueueAt uint64

	// BurstsIssued counts how many burst-aligned fragments of this
	// transaction have already been issued as DRAM commands, so a
	// scheduler can resume a multi-burst transfer across cycles without
	// tracking any command-sequence state of its own (spec.md §4.3/§4.4:
	// a transaction may span several bursts within its row).
	BurstsIssued uint32
}

// ColumnRange returns the half-open [start,end) column-granule range this
// transaction spans, for dependency-overlap checks in the split R/W FIFO
// scheduler.
func (t ChannelTransaction) ColumnRange(colGranuleBytes uint32) (start, end uint32) {
	start = t.StartCol
	end = start + mathx.CeilDiv(t.ByteLen, colGranuleBytes)
	return start, end
}

// MemoryRequest is the client-visible unit of work (spec.md §3).
type MemoryRequest struct {
	Transaction RequestTxn
	Client      ClientSrc
	Address     uint64
	ByteLen     uint32
	DataBuffer  []byte
	WriteMask   []byte // optional
	ArrivalAt   uint64
	Outstanding uint32
	State       RequestState

	IsSystemMemory bool
	ReadReply      bool // true once a read's reply has been built for the service queue
}

// Complete reports whether every channel transaction this request split
// into has finished (spec.md §3 "completes when outstanding reaches 0").
func (r *MemoryRequest) Complete() bool { return r.Outstanding == 0 }
