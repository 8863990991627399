package types

import (
	"fmt"
	"math/bits"

	"gddrmc/x/mathx"
)

// TimingProfile carries the full GDDR3-baseline timing tuple (spec.md §6).
type TimingProfile struct {
	Name         string `yaml:"name"`
	TRRD         uint32 `yaml:"t_rrd"`
	TRCD         uint32 `yaml:"t_rcd"`
	TWTR         uint32 `yaml:"t_wtr"`
	TRTW         uint32 `yaml:"t_rtw"`
	TWR          uint32 `yaml:"t_wr"`
	TRP          uint32 `yaml:"t_rp"`
	CASLatency   uint32 `yaml:"cas_latency"`
	WriteLatency uint32 `yaml:"write_latency"`
}

// ZeroDelayProfile is the mandatory all-zero timing profile (spec.md §6).
func ZeroDelayProfile() TimingProfile {
	return TimingProfile{Name: "zero-delay"}
}

// CustomProfile builds the mandatory "custom" profile from configuration.
func CustomProfile(trrd, trcd, twtr, trtw, twr, trp, cas, wl uint32) TimingProfile {
	return TimingProfile{
		Name: "custom", TRRD: trrd, TRCD: trcd, TWTR: twtr, TRTW: trtw,
		TWR: twr, TRP: trp, CASLatency: cas, WriteLatency: wl,
	}
}

// ModuleConfig describes one DRAM module's geometry and protocol timing.
type ModuleConfig struct {
	Banks                uint32        `yaml:"banks"`
	Rows                 uint32        `yaml:"rows"`
	Cols                 uint32        `yaml:"cols"`
	BurstLength          uint32        `yaml:"burst_length"`
	BurstBytesPerCycle   uint32        `yaml:"burst_bytes_per_cycle"`
	Timing               TimingProfile `yaml:"timing"`
	ClosePage            bool          `yaml:"close_page"`
}

func (c ModuleConfig) Validate() error {
	if c.Banks == 0 || c.Rows == 0 || c.Cols == 0 {
		return fmt.Errorf("invalid config: banks/rows/cols must be non-zero")
	}
	if c.BurstLength == 0 {
		return fmt.Errorf("invalid config: burst_length must be non-zero")
	}
	if c.BurstBytesPerCycle == 0 {
		return fmt.Errorf("invalid config: burst_bytes_per_cycle must be non-zero")
	}
	return nil
}

// BurstBytes is the byte length of one burst: burst_length * 4.
func (c ModuleConfig) BurstBytes() uint32 { return c.BurstLength * 4 }

// BurstCycles is the number of data-pin cycles one burst occupies.
func (c ModuleConfig) BurstCycles() uint32 {
	return mathx.CeilDiv(c.BurstBytes(), c.BurstBytesPerCycle)
}

// RowSizeBytes is the byte size of one row (cols * 4).
func (c ModuleConfig) RowSizeBytes() uint32 { return c.Cols * 4 }

// SplitterKind selects an address-splitter variant (spec.md §4.3).
type SplitterKind uint8

const (
	SplitterByteInterleaved SplitterKind = iota
	SplitterBitmask
)

// SplitterConfig carries both variants' parameters; only the fields for
// Kind are consulted.
type SplitterConfig struct {
	Kind SplitterKind `yaml:"kind"`

	// Byte-interleaved variant.
	Channels                uint32 `yaml:"channels"`
	ChannelInterleavingBytes uint32 `yaml:"channel_interleaving_bytes"`
	BanksPerChannel         uint32 `yaml:"banks_per_channel"`
	BankInterleavingBytes   uint32 `yaml:"bank_interleaving_bytes"`
	RowSizeBytes            uint32 `yaml:"row_size_bytes"`

	// Bitmask variant: bit positions, LSB-first within each list.
	ChannelBitmask []uint32 `yaml:"channel_bitmask"`
	BankBitmask    []uint32 `yaml:"bank_bitmask"`

	// BurstWords is the burst-alignment unit this splitter must respect
	// (SPEC_FULL §11: per-range burst length for the second splitter).
	BurstWords uint32 `yaml:"burst_words"`
}

func isPowerOfTwo(v uint32) bool { return v != 0 && v&(v-1) == 0 }

func (c SplitterConfig) Validate() error {
	if c.BurstWords == 0 {
		return fmt.Errorf("invalid splitter config: burst_words must be non-zero")
	}
	burstBytes := c.BurstWords * 4
	switch c.Kind {
	case SplitterByteInterleaved:
		if !isPowerOfTwo(c.Channels) {
			return fmt.Errorf("invalid splitter config: channels must be a power of two, got %d", c.Channels)
		}
		if !isPowerOfTwo(c.BanksPerChannel) {
			return fmt.Errorf("invalid splitter config: banks_per_channel must be a power of two, got %d", c.BanksPerChannel)
		}
		if c.ChannelInterleavingBytes < burstBytes || c.ChannelInterleavingBytes%burstBytes != 0 || !isPowerOfTwo(c.ChannelInterleavingBytes/burstBytes) {
			return fmt.Errorf("invalid splitter config: channel_interleaving_bytes must be a power-of-two multiple of burst bytes >= burst bytes")
		}
		if c.BankInterleavingBytes < burstBytes || c.BankInterleavingBytes%burstBytes != 0 || !isPowerOfTwo(c.BankInterleavingBytes/burstBytes) {
			return fmt.Errorf("invalid splitter config: bank_interleaving_bytes must be a power-of-two multiple of burst bytes >= burst bytes")
		}
	case SplitterBitmask:
		if len(c.ChannelBitmask) == 0 {
			return fmt.Errorf("invalid splitter config: channel_bitmask must name at least one bit")
		}
		if len(c.BankBitmask) == 0 {
			return fmt.Errorf("invalid splitter config: bank_bitmask must name at least one bit")
		}
		seen := map[uint32]string{}
		for _, b := range c.ChannelBitmask {
			seen[b] = "channel"
		}
		for _, b := range c.BankBitmask {
			if seen[b] == "channel" {
				return fmt.Errorf("invalid splitter config: bit %d used by both channel and bank bitmask", b)
			}
		}
	default:
		return fmt.Errorf("invalid splitter config: unknown kind %d", c.Kind)
	}
	return nil
}

// ChannelBits returns log2(Channels) for the byte-interleaved variant.
func (c SplitterConfig) ChannelBits() uint32 { return uint32(bits.TrailingZeros32(c.Channels)) }

// BankBits returns log2(BanksPerChannel) for the byte-interleaved variant.
func (c SplitterConfig) BankBits() uint32 { return uint32(bits.TrailingZeros32(c.BanksPerChannel)) }

// SchedulerKind selects a channel-scheduler variant (spec.md §4.4).
type SchedulerKind uint8

const (
	SchedulerFIFO SchedulerKind = iota
	SchedulerSplitRWFIFO
	SchedulerBankQueue
)

// SwitchModeKind selects a switch-operation-mode policy (spec.md §4.6).
type SwitchModeKind uint8

const (
	SwitchModeTwoCounters SwitchModeKind = iota
	SwitchModeLoadsOverStores
)

// BankCompareKind enumerates the bank-selection comparators (spec.md §4.7).
type BankCompareKind uint8

const (
	CompareRandom BankCompareKind = iota
	CompareRoundRobin
	CompareOldestFirst
	CompareYoungestFirst
	CompareMoreConsecutiveHitsFirst
	CompareLessConsecutiveHitsFirst
	CompareMorePendingRequestsFirst
	CompareLessPendingRequestsFirst
	CompareZeroPendingFirst
)

// SchedulerConfig parameterizes whichever scheduler variant Kind selects.
type SchedulerConfig struct {
	Kind SchedulerKind `yaml:"kind"`

	QueueCapacity  uint32 `yaml:"queue_capacity"`  // FIFO variant
	DedicatedReads uint32 `yaml:"dedicated_reads"` // split R/W FIFO variant

	PerBankQueueCapacity uint32            `yaml:"per_bank_queue_capacity"` // bank-queue variant
	BankCompareOrder     []BankCompareKind `yaml:"bank_compare_order"`
	PrechargeManager     bool              `yaml:"precharge_manager"`
	ActiveManager        bool              `yaml:"active_manager"`
	ManagersOrder        []string          `yaml:"managers_order"` // "precharge","active"

	SwitchMode              SwitchModeKind `yaml:"switch_mode"`
	MaxConsecutiveReads     uint32         `yaml:"max_consecutive_reads"`
	MaxConsecutiveWrites    uint32         `yaml:"max_consecutive_writes"`
}

func (c SchedulerConfig) Validate() error {
	switch c.Kind {
	case SchedulerFIFO:
		if c.QueueCapacity == 0 {
			return fmt.Errorf("invalid scheduler config: queue_capacity must be non-zero")
		}
	case SchedulerSplitRWFIFO:
		if c.QueueCapacity == 0 || c.DedicatedReads == 0 || c.DedicatedReads >= c.QueueCapacity {
			return fmt.Errorf("invalid scheduler config: dedicated_reads must be in (0, queue_capacity)")
		}
	case SchedulerBankQueue:
		if c.PerBankQueueCapacity == 0 {
			return fmt.Errorf("invalid scheduler config: per_bank_queue_capacity must be non-zero")
		}
	default:
		return fmt.Errorf("invalid scheduler config: unknown kind %d", c.Kind)
	}
	if c.SwitchMode == SwitchModeTwoCounters && (c.MaxConsecutiveReads == 0 || c.MaxConsecutiveWrites == 0) {
		return fmt.Errorf("invalid scheduler config: two-counters mode needs non-zero consecutive-op budgets")
	}
	return nil
}

// ControllerConfig assembles the whole memory-controller orchestrator.
type ControllerConfig struct {
	Channels            uint32          `yaml:"channels"`
	Module              ModuleConfig    `yaml:"module"`
	Splitter            SplitterConfig  `yaml:"splitter"`
	SecondRangeStart    uint64          `yaml:"second_range_start"` // 0 = no second range
	SecondSplitter      *SplitterConfig `yaml:"second_splitter,omitempty"`
	Scheduler           SchedulerConfig `yaml:"scheduler"`
	RequestBufferSize   uint32          `yaml:"request_buffer_size"`
	SystemBufferSize    uint32          `yaml:"system_request_buffer_size"`
	PerClientReserve    uint32          `yaml:"per_client_reserve"`
	ServiceQueueSize    uint32          `yaml:"service_queue_size"`
	PerChannelQueueSize uint32          `yaml:"per_channel_queue_size"`
	ROPCount            uint32          `yaml:"rop_count"` // 0 disables per-ROP reservation
	SystemMemoryLatency uint32          `yaml:"system_memory_latency_cycles"`

	// ClientBusWordsPerCycle is the declared bandwidth (words per cycle)
	// of every client's bidirectional request/data bus (spec.md §6, §4.5
	// "client bus protocol"). It governs both how long a WRITE_DATA
	// payload stays marked transmitting before admission and how long a
	// completed request's reply occupies the bus before delivery.
	ClientBusWordsPerCycle uint32 `yaml:"client_bus_words_per_cycle"`
}

func (c ControllerConfig) Validate() error {
	if !isPowerOfTwo(c.Channels) {
		return fmt.Errorf("invalid controller config: channels must be a power of two, got %d", c.Channels)
	}
	if err := c.Module.Validate(); err != nil {
		return err
	}
	if err := c.Splitter.Validate(); err != nil {
		return err
	}
	if c.SecondSplitter != nil {
		if err := c.SecondSplitter.Validate(); err != nil {
			return err
		}
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if c.RequestBufferSize == 0 || c.ServiceQueueSize == 0 || c.PerChannelQueueSize == 0 {
		return fmt.Errorf("invalid controller config: buffer sizes must be non-zero")
	}
	if c.ClientBusWordsPerCycle == 0 {
		return fmt.Errorf("invalid controller config: client_bus_words_per_cycle must be non-zero")
	}
	return nil
}
