// Package errcode gives every fatal condition in the CORE a stable,
// comparable identifier, so a panic message can be matched in tests
// without parsing free text (spec.md §7 "Error Handling Design").
package errcode

// Code is a stable error identifier. It is a string newtype, comparable,
// allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes. All of them are FATAL per spec.md §7: the CORE never
// retries or recovers locally.
const (
	OK    Code = "ok"
	Error Code = "error" // generic fallback

	InvalidParams Code = "invalid_params"
	InvalidConfig Code = "invalid_config"
	Timeout       Code = "timeout"

	// Protocol violations (spec.md §4.1/§4.2 named constraints surface
	// under these as well, via types.ConstraintKind.String()).
	ProtoViolation Code = "protocol_violation"

	// Resource-exhaustion faults (spec.md §7 "Queue overflow").
	RequestBufferFull Code = "request_buffer_full"
	ChannelQueueFull  Code = "channel_queue_full"
	ServiceQueueFull  Code = "service_queue_full"

	// Addressing faults (spec.md §7 "Address out of range").
	AddrOutOfRange    Code = "addr_out_of_range"
	AddrStraddlesBoundary Code = "addr_straddles_second_range"
	NotBurstAligned   Code = "not_burst_aligned"

	// Transient/simulation-bug faults (spec.md §7 "Transient").
	DataLoss         Code = "data_loss"
	StateMismatch    Code = "state_mismatch"
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// New builds an *E for the common case of "operation failed with code and
// message, no wrapped cause".
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap builds an *E around an existing error, preserving Unwrap().
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
