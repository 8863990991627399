package splitter

import (
	"testing"

	"gddrmc/types"

	"github.com/stretchr/testify/require"
)

func bitmaskConfig() types.SplitterConfig {
	return types.SplitterConfig{
		Kind:           types.SplitterBitmask,
		ChannelBitmask: []uint32{4},
		BankBitmask:    []uint32{5, 6},
		RowSizeBytes:   64,
		BurstWords:     4, // 16 bytes
	}
}

func TestBitmaskDecomposeSelectsChannelAndBankBits(t *testing.T) {
	cfg := bitmaskConfig()
	require.NoError(t, cfg.Validate())
	m := NewBitmask(cfg)

	cases := []struct {
		addr            uint64
		channel, bank uint32
	}{
		{0, 0, 0},
		{16, 1, 0},  // bit 4 set
		{32, 0, 1},  // bit 5 set
		{64, 0, 2},  // bit 6 set
		{96, 0, 3},  // bits 5 and 6 set
		{16 + 32, 1, 1},
	}
	for _, c := range cases {
		channel, bank, _, _ := m.decompose(c.addr)
		require.Equalf(t, c.channel, channel, "addr %d channel", c.addr)
		require.Equalf(t, c.bank, bank, "addr %d bank", c.addr)
	}
}

func TestBitmaskSplitStaysWithinOneFragmentBeforeBoundary(t *testing.T) {
	cfg := bitmaskConfig()
	require.NoError(t, cfg.Validate())
	sp, err := New(cfg)
	require.NoError(t, err)

	req := &types.MemoryRequest{
		Transaction: types.TxnReadReq,
		Address:     0,
		ByteLen:     16,
		DataBuffer:  make([]byte, 16),
	}
	txns, err := sp.Split(req, types.RequestRef{Slot: 1, Generation: 1})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, uint32(0), txns[0].Channel)
	require.Equal(t, uint32(16), txns[0].ByteLen)
}

func TestBitmaskSplitFragmentsAcrossChannelBoundary(t *testing.T) {
	cfg := bitmaskConfig()
	require.NoError(t, cfg.Validate())
	sp, err := New(cfg)
	require.NoError(t, err)

	req := &types.MemoryRequest{
		Transaction: types.TxnReadReq,
		Address:     0,
		ByteLen:     32,
		DataBuffer:  make([]byte, 32),
	}
	txns, err := sp.Split(req, types.RequestRef{Slot: 1, Generation: 1})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, uint32(0), txns[0].Channel)
	require.Equal(t, uint32(1), txns[1].Channel)
	require.Equal(t, uint32(16), txns[0].ByteLen)
	require.Equal(t, uint32(16), txns[1].ByteLen)
}

func TestBitmaskSplitRejectsMisalignedAddress(t *testing.T) {
	cfg := bitmaskConfig()
	require.NoError(t, cfg.Validate())
	sp, err := New(cfg)
	require.NoError(t, err)

	req := &types.MemoryRequest{
		Transaction: types.TxnReadReq,
		Address:     2,
		ByteLen:     16,
		DataBuffer:  make([]byte, 16),
	}
	_, err = sp.Split(req, types.RequestRef{Slot: 1, Generation: 1})
	require.Error(t, err)
}

func TestParseAndFormatBitList(t *testing.T) {
	bits, err := ParseBitList("9 10 11")
	require.NoError(t, err)
	require.Equal(t, []uint32{9, 10, 11}, bits)
	require.Equal(t, "9 10 11", FormatBitList(bits))

	_, err = ParseBitList("")
	require.Error(t, err)
}
