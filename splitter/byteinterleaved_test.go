package splitter

import (
	"testing"

	"gddrmc/types"

	"github.com/stretchr/testify/require"
)

func byteInterleavedConfig() types.SplitterConfig {
	return types.SplitterConfig{
		Kind:                     types.SplitterByteInterleaved,
		Channels:                 2,
		ChannelInterleavingBytes: 16,
		BanksPerChannel:          2,
		BankInterleavingBytes:    16,
		RowSizeBytes:             64,
		BurstWords:               4, // 16 bytes
	}
}

func TestByteInterleavedDecomposeAlternatesChannels(t *testing.T) {
	cfg := byteInterleavedConfig()
	require.NoError(t, cfg.Validate())
	m := NewByteInterleaved(cfg)

	cases := []struct {
		addr    uint64
		channel uint32
	}{
		{0, 0}, {16, 1}, {32, 0}, {48, 1},
	}
	for _, c := range cases {
		channel, _, _, _ := m.decompose(c.addr)
		require.Equalf(t, c.channel, channel, "addr %d", c.addr)
	}
}

func TestByteInterleavedSplitFragmentsAtChannelBoundary(t *testing.T) {
	cfg := byteInterleavedConfig()
	require.NoError(t, cfg.Validate())
	sp, err := New(cfg)
	require.NoError(t, err)

	req := &types.MemoryRequest{
		Transaction: types.TxnReadReq,
		Address:     0,
		ByteLen:     64,
		DataBuffer:  make([]byte, 64),
	}
	txns, err := sp.Split(req, types.RequestRef{Slot: 1, Generation: 1})
	require.NoError(t, err)
	require.Len(t, txns, 4)

	wantChannels := []uint32{0, 1, 0, 1}
	for i, txn := range txns {
		require.Equal(t, wantChannels[i], txn.Channel, "fragment %d", i)
		require.Equal(t, uint32(16), txn.ByteLen)
		require.Equal(t, types.KindRead, txn.Kind)
	}
}

func TestByteInterleavedSplitRejectsMisalignedAddress(t *testing.T) {
	cfg := byteInterleavedConfig()
	require.NoError(t, cfg.Validate())
	sp, err := New(cfg)
	require.NoError(t, err)

	req := &types.MemoryRequest{
		Transaction: types.TxnReadReq,
		Address:     3,
		ByteLen:     16,
		DataBuffer:  make([]byte, 16),
	}
	_, err = sp.Split(req, types.RequestRef{Slot: 1, Generation: 1})
	require.Error(t, err)
}
