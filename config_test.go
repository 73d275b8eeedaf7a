package scopeacq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddChannelBasic(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.AddChannel("CHAN1"))
	require.NoError(t, cfg.AddChannel("CHAN2"))
	require.Equal(t, []string{"CHAN1", "CHAN2"}, cfg.Channels())
}

func TestAddChannelRejectsDuplicate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.AddChannel("CHAN1"))
	err := cfg.AddChannel("CHAN1")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConfig))
}

func TestAddChannelRejectsOverCapacity(t *testing.T) {
	cfg := NewConfig()
	for i := 0; i < 8; i++ {
		require.NoError(t, cfg.AddChannel(string(rune('A'+i))))
	}
	err := cfg.AddChannel("ONE_TOO_MANY")
	require.Error(t, err)
	require.Equal(t, 8, cfg.NChannels())
}

func TestAddChannelRejectsEmpty(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.AddChannel("   "))
}

func TestParseChannelsListTrimsAndDedups(t *testing.T) {
	cfg := NewConfig()
	err := cfg.ParseChannelsList(" CHAN1 , CHAN2,CHAN1 ,, CHAN3 ")
	require.Error(t, err, "the repeated CHAN1 should surface as the first error")
	require.Equal(t, []string{"CHAN1", "CHAN2", "CHAN3"}, cfg.Channels())
}

func TestResolveChannelsDefaultsToChan1(t *testing.T) {
	cfg := NewConfig()
	cfg.ResolveChannels(nil)
	require.Equal(t, []string{"CHAN1"}, cfg.Channels())
}

func TestResolveChannelsUsesDiscovered(t *testing.T) {
	cfg := NewConfig()
	cfg.ResolveChannels([]string{"CHAN2", "CHAN3"})
	require.Equal(t, []string{"CHAN2", "CHAN3"}, cfg.Channels())
}

func TestResolveChannelsLeavesExplicitAlone(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.AddChannel("MATH"))
	cfg.ResolveChannels([]string{"CHAN1"})
	require.Equal(t, []string{"MATH"}, cfg.Channels())
}

func TestClampFlushTraces(t *testing.T) {
	cfg := NewConfig()
	cfg.NFlushTraces = 0
	cfg.ClampFlushTraces()
	require.Equal(t, 1, cfg.NFlushTraces)

	cfg.NFlushTraces = -5
	cfg.ClampFlushTraces()
	require.Equal(t, 1, cfg.NFlushTraces)
}

func TestStoreMode(t *testing.T) {
	cfg := NewConfig()
	require.False(t, cfg.StoreMode())
	cfg.Outfile = "out"
	require.True(t, cfg.StoreMode())
}

func TestCodingBytesPerSample(t *testing.T) {
	require.Equal(t, 1, CodingByte.BytesPerSample())
	require.Equal(t, 2, CodingWord.BytesPerSample())
	require.Equal(t, "BYTE", CodingByte.String())
	require.Equal(t, "SHORT", CodingWord.String())
}
