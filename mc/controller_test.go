package mc

import (
	"testing"

	"gddrmc/bus"
	"gddrmc/corefault"
	"gddrmc/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testControllerConfig() types.ControllerConfig {
	return types.ControllerConfig{
		Channels: 1,
		Module: types.ModuleConfig{
			Banks: 1, Rows: 8, Cols: 16,
			BurstLength:        4,
			BurstBytesPerCycle: 4,
			Timing:             types.ZeroDelayProfile(),
		},
		Splitter: types.SplitterConfig{
			Kind:                     types.SplitterByteInterleaved,
			Channels:                 1,
			ChannelInterleavingBytes: 16,
			BanksPerChannel:          1,
			BankInterleavingBytes:    16,
			RowSizeBytes:             64,
			BurstWords:               4,
		},
		Scheduler: types.SchedulerConfig{
			Kind:                 types.SchedulerFIFO,
			QueueCapacity:        8,
			MaxConsecutiveReads:  4,
			MaxConsecutiveWrites: 4,
		},
		RequestBufferSize:      8,
		SystemBufferSize:       8,
		ServiceQueueSize:       8,
		PerChannelQueueSize:    8,
		SystemMemoryLatency:    4,
		ClientBusWordsPerCycle: 4,
	}
}

func newTestController(t *testing.T) (*Controller, *bus.Connection) {
	cfg := testControllerConfig()
	require.NoError(t, cfg.Validate())
	conn := bus.NewBus(16).NewConnection("test")
	log := logrus.NewEntry(logrus.New())
	sink := &corefault.Recorder{}
	ctrl, err := NewController(cfg, conn, sink, uuid.New(), log)
	require.NoError(t, err)
	return ctrl, conn
}

func TestControllerWriteThenReadRoundTrip(t *testing.T) {
	ctrl, conn := newTestController(t)
	client := types.ClientSrc{UnitID: 1, SubID: 0}
	sub := conn.Subscribe(ReplyTopic(client))

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, ctrl.Submit(ClientMessage{
		Src: client, Txn: types.TxnWriteData, Address: 0, ByteLen: 16, Data: payload,
	}, 0))

	// Give the write time to cross the client bus and land in DRAM
	// before the dependent read is submitted, the way a real client
	// would wait for its write acknowledgement first.
	cycle := uint64(0)
	for ; cycle < 8; cycle++ {
		ctrl.Clock(cycle)
	}

	require.NoError(t, ctrl.Submit(ClientMessage{
		Src: client, Txn: types.TxnReadReq, Address: 0, ByteLen: 16,
	}, cycle))

	for ; cycle < 64; cycle++ {
		ctrl.Clock(cycle)
	}

	select {
	case msg := <-sub.Channel():
		reply := msg.Payload.(ClientReply)
		require.Equal(t, payload, reply.Data)
	default:
		t.Fatal("expected a reply to have been published")
	}
}

func TestControllerSystemMemoryRoundTrip(t *testing.T) {
	ctrl, conn := newTestController(t)
	client := types.ClientSrc{UnitID: 2, SubID: 0}
	sub := conn.Subscribe(ReplyTopic(client))

	require.NoError(t, ctrl.Submit(ClientMessage{
		Src: client, Txn: types.TxnReadReq, Address: 1 << 20, ByteLen: 16,
		IsSystemMemory: true,
	}, 0))

	for cycle := uint64(0); cycle < 16; cycle++ {
		ctrl.Clock(cycle)
	}

	select {
	case <-sub.Channel():
	default:
		t.Fatal("expected a system-memory reply to have been published")
	}
}

func TestControllerRequestBufferFullRejectsSubmit(t *testing.T) {
	cfg := testControllerConfig()
	cfg.RequestBufferSize = 1
	require.NoError(t, cfg.Validate())
	conn := bus.NewBus(16).NewConnection("test")
	sink := &corefault.Recorder{}
	ctrl, err := NewController(cfg, conn, sink, uuid.New(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	client := types.ClientSrc{UnitID: 3, SubID: 0}
	require.NoError(t, ctrl.Submit(ClientMessage{
		Src: client, Txn: types.TxnReadReq, Address: 0, ByteLen: 16,
	}, 0))
	err = ctrl.Submit(ClientMessage{
		Src: client, Txn: types.TxnReadReq, Address: 0, ByteLen: 16,
	}, 0)
	require.Error(t, err)
}

func TestControllerPreloadChannelBypassesScheduler(t *testing.T) {
	ctrl, _ := newTestController(t)
	require.NoError(t, ctrl.PreloadChannel(0, 0, 2, 0, []uint32{9, 9, 9, 9}))
	require.Error(t, ctrl.PreloadChannel(1, 0, 2, 0, []uint32{9}))
}
